package models

// Category is a recipe category offered by GET /config.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SiteConfig is the payload of GET /config.
type SiteConfig struct {
	Categories   []Category                   `json:"categories"`
	Locale       string                       `json:"locale,omitempty"`
	Translations map[string]map[string]string `json:"translations,omitempty"`
}

// Translate returns the message for key in locale, falling back to key.
func (c SiteConfig) Translate(locale, key string) string {
	if msgs, ok := c.Translations[locale]; ok {
		if v, ok := msgs[key]; ok {
			return v
		}
	}
	return key
}
