package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/tillapos/internal/client/models"
)

func (a *App) Me(ctx context.Context) error {
	u, err := a.svc.Users.Me(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s <%s>\n", u.Username, u.Email)
	if u.Phone != "" {
		fmt.Fprintf(a.out, "Phone: %s\n", u.Phone)
	}
	if u.Business != nil {
		fmt.Fprintf(a.out, "Business: %s (%s)\n", u.Business.Name, u.Business.Currency)
	}
	return nil
}

func (a *App) Business(ctx context.Context) error {
	b, err := a.svc.Businesses.Mine(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s [%s]\n", b.Name, b.Slug)
	fmt.Fprintf(a.out, "Currency: %s\n", b.Currency)
	if b.Image != "" {
		fmt.Fprintf(a.out, "Logo: %s\n", b.Image)
	}
	return nil
}

func (a *App) BusinessTypes(ctx context.Context) error {
	opts, err := a.svc.BusinessTypes.Options(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VALUE\tLABEL")
	for _, o := range opts {
		fmt.Fprintf(tw, "%s\t%s\n", o.Value, o.Label)
	}
	return tw.Flush()
}

func (a *App) Categories(ctx context.Context) error {
	list, err := a.svc.Categories.List(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No categories yet. Add one with 'add-category'.")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tIMAGE")
	for _, c := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", c.ID, c.Name, orDash(c.Image))
	}
	return tw.Flush()
}

func (a *App) Category(ctx context.Context, id string) error {
	c, err := a.svc.Categories.Get(ctx, id)
	if err != nil {
		return err
	}
	a.printCategory(c)
	return nil
}

func (a *App) AddCategory(ctx context.Context) error {
	name, err := a.ask("Enter category name")
	if err != nil {
		return err
	}
	image, err := getFile(a.reader, "Path to category image", a.out)
	if err != nil {
		return err
	}

	c, err := a.svc.Categories.Create(ctx, name, image)
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Category created")
	a.printCategory(c)
	return nil
}

func (a *App) UpdateCategory(ctx context.Context, id string) error {
	name, err := a.ask("Enter new name (empty to keep)")
	if err != nil {
		return err
	}
	image, err := getFile(a.reader, "Path to new image", a.out)
	if err != nil {
		return err
	}

	c, err := a.svc.Categories.Update(ctx, id, name, image)
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Category updated")
	a.printCategory(c)
	return nil
}

func (a *App) printCategory(c models.Category) {
	fmt.Fprintf(a.out, "%s  %s\n", c.ID, c.Name)
	if c.Image != "" {
		fmt.Fprintf(a.out, "Image: %s\n", c.Image)
	}
}

func (a *App) Devices(ctx context.Context) error {
	d, err := a.svc.Devices.List(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STATUS\tNAME\tSYSTEM\tLAST ACTIVITY\tLOCATION")

	row := func(status string, dev models.Device) {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			status,
			orDash(dev.Name),
			strings.TrimSpace(dev.SystemName+" "+dev.SystemVersion),
			lastActivity(dev.LastActivityAt),
			lastLocation(dev.Locations),
		)
	}

	if d.CurrentDevice != nil {
		row("current", *d.CurrentDevice)
	}
	for _, dev := range d.ActiveDevices {
		row("active", dev)
	}
	for _, dev := range d.InactiveDevices {
		row("inactive", dev)
	}

	return tw.Flush()
}

func lastActivity(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format(time.DateTime)
}

func lastLocation(locs []models.DeviceLocation) string {
	if len(locs) == 0 {
		return "-"
	}
	l := locs[len(locs)-1]
	if l.FormattedAddress != "" {
		return l.FormattedAddress
	}
	return orDash(strings.Trim(l.City+", "+l.Country, ", "))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
