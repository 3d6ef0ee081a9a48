package apitest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const apiVersion = "1"

var validate = validator.New()

func init() {
	// report fields by their json name
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

type envelope struct {
	APIVersion string `json:"apiVersion"`
	Data       any    `json:"data,omitempty"`
	Timestamp  string `json:"timestamp"`
	StatusCode int    `json:"statusCode"`
	Message    any    `json:"message,omitempty"`
	Error      string `json:"error,omitempty"`
	Path       string `json:"path"`
}

func writeEnvelope(w http.ResponseWriter, status int, env envelope) {
	env.APIVersion = apiVersion
	env.Timestamp = time.Now().UTC().Format(time.RFC3339)
	env.StatusCode = status

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

func writeData(w http.ResponseWriter, r *http.Request, status int, data any) {
	writeEnvelope(w, status, envelope{Data: data, Message: "success", Path: r.URL.Path})
}

// writeError answers with message, which is a string or a list of strings.
func writeError(w http.ResponseWriter, r *http.Request, status int, message any) {
	writeEnvelope(w, status, envelope{
		Message: message,
		Error:   http.StatusText(status),
		Path:    r.URL.Path,
	})
}

// bind decodes and validates a JSON body, answering 400 on failure.
func bind[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var v T

	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		writeError(w, r, http.StatusBadRequest, fmt.Sprintf("Failed to parse JSON: %v", err))
		return v, false
	}

	if err := validate.Struct(v); err != nil {
		var errs validator.ValidationErrors
		if !errors.As(err, &errs) {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return v, false
		}
		writeError(w, r, http.StatusBadRequest, validationMessages(errs))
		return v, false
	}

	return v, true
}

func validationMessages(errs validator.ValidationErrors) []string {
	msgs := make([]string, 0, len(errs))
	for _, fe := range errs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fe.Field()+" should not be empty")
		case "email":
			msgs = append(msgs, fe.Field()+" must be an email")
		case "len":
			msgs = append(msgs, fmt.Sprintf("%s must be %s characters long", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fe.Field()+" is invalid")
		}
	}
	return msgs
}
