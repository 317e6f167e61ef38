package config

import (
	"fmt"
	"os"
)

type Config struct {
	Port string

	// Service auth
	APIKey string

	// Hierarchy/content store
	ContentAPIURL string
	ContentAPIKey string

	// Remote delivery channel
	DeliveryURL    string
	DeliveryAPIKey string

	// Export branding
	LogoURL        string
	SenderName     string
	SupportContact string

	// Optional TTF overrides for the probe/render font stack. Both must be
	// set to take effect; the embedded fonts are used otherwise.
	FontPath     string
	BoldFontPath string
}

func Load() Config {
	return Config{
		Port: envOr("PORT", "8090"),

		APIKey: os.Getenv("EDUPRESS_API_KEY"),

		ContentAPIURL: envOr("CONTENT_API_URL", "http://localhost:8080"),
		ContentAPIKey: os.Getenv("CONTENT_API_KEY"),

		DeliveryURL:    envOr("DELIVERY_URL", "http://localhost:8081"),
		DeliveryAPIKey: os.Getenv("DELIVERY_API_KEY"),

		LogoURL:        os.Getenv("LOGO_URL"),
		SenderName:     envOr("SENDER_NAME", "EduPress"),
		SupportContact: envOr("SUPPORT_CONTACT", "support@edupress.example"),

		FontPath:     os.Getenv("FONT_PATH"),
		BoldFontPath: os.Getenv("BOLD_FONT_PATH"),
	}
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("EDUPRESS_API_KEY is required")
	}
	if c.ContentAPIKey == "" {
		return fmt.Errorf("CONTENT_API_KEY is required")
	}
	if c.DeliveryAPIKey == "" {
		return fmt.Errorf("DELIVERY_API_KEY is required")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
