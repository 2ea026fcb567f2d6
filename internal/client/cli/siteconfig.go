package cli

import (
	"context"
	"sort"
)

// SiteConfig prints the categories offered by the server. When the server
// is unreachable the cached copy is shown with its age.
func (a *App) SiteConfig(ctx context.Context, _ []string) error {
	cfg, fetchedAt, err := a.siteCfg.Get(ctx)
	if err != nil {
		a.report(err)
		return err
	}
	if !fetchedAt.IsZero() {
		a.printf("Offline, showing categories cached at %s\n", fetchedAt.Local().Format("2006-01-02 15:04"))
	}

	cats := cfg.Categories
	sort.SliceStable(cats, func(i, j int) bool { return cats[i].Name < cats[j].Name })

	a.println("Categories:")
	for _, c := range cats {
		a.printf("  %-16s %s\n", c.ID, cfg.Translate(cfg.Locale, c.Name))
	}
	return nil
}
