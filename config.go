package main

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	BrowserProfilePath string `yaml:"browser_profile_path"`

	RuntimeDir string `yaml:"runtime_dir"`

	// Storefront locale (e.g. "en-US"). Empty means detect from the system.
	Locale string `yaml:"locale"`

	ButtonTimeoutSeconds      int `yaml:"button_timeout_seconds"`
	AgeGateTimeoutSeconds     int `yaml:"age_gate_timeout_seconds"`
	PlaceOrderTimeoutSeconds  int `yaml:"place_order_timeout_seconds"`
	FallbackTimeoutSeconds    int `yaml:"fallback_timeout_seconds"`
	LicenseTimeoutSeconds     int `yaml:"license_timeout_seconds"`
	CartSuccessTimeoutSeconds int `yaml:"cart_success_timeout_seconds"`
	ChallengeInitDelaySeconds int `yaml:"challenge_init_delay_seconds"`

	CartRerenderBound   int `yaml:"cart_rerender_bound"`
	PurchaseMaxAttempts int `yaml:"purchase_max_attempts"`
	CollectMaxAttempts  int `yaml:"collect_max_attempts"`

	// Optional weekly rotation instant, e.g. "2025-01-16 16:00 UTC".
	// When set, the run stays dormant until that time.
	RotationTime string   `yaml:"rotation_time"`
	TimeServers  []string `yaml:"time_servers"`

	Challenge ChallengeConfig `yaml:"challenge"`

	Headless        bool `yaml:"headless"`
	KeepBrowserOpen bool `yaml:"keep_browser_open"`

	DryRun    bool `yaml:"dry_run"`
	DebugMode bool `yaml:"debug_mode"`

	Selectors SelectorConfig `yaml:"selectors"`
}

type ChallengeConfig struct {
	GraceSeconds        int `yaml:"grace_seconds"`
	SolveTimeoutSeconds int `yaml:"solve_timeout_seconds"`
	PollIntervalMs      int `yaml:"poll_interval_ms"`
}

type SelectorConfig struct {
	LoginIndicator     string `yaml:"login_indicator"`
	OrderHistoryBody   string `yaml:"order_history_body"`
	PurchaseButton     string `yaml:"purchase_button"`
	AgeGateContinue    string `yaml:"age_gate_continue"`
	PurchaseIframe     string `yaml:"purchase_iframe"`
	PlaceOrderFallback string `yaml:"place_order_fallback"`
	OfferCard          string `yaml:"offer_card"`
	FreeLabel          string `yaml:"free_label"`
	MoveToWishlist     string `yaml:"move_to_wishlist"`
	CheckoutButton     string `yaml:"checkout_button"`
	LicenseAgree       string `yaml:"license_agree"`
	LicenseAccept      string `yaml:"license_accept"`
}

func DefaultConfig() *Config {
	userDataDir := getUserDataDir()

	return &Config{
		BrowserProfilePath:        filepath.Join(userDataDir, "browser-profile"),
		RuntimeDir:                filepath.Join(userDataDir, "runtime"),
		Locale:                    "",
		ButtonTimeoutSeconds:      5,
		AgeGateTimeoutSeconds:     5,
		PlaceOrderTimeoutSeconds:  15,
		FallbackTimeoutSeconds:    5,
		LicenseTimeoutSeconds:     4,
		CartSuccessTimeoutSeconds: 60,
		ChallengeInitDelaySeconds: 3,
		CartRerenderBound:         30,
		PurchaseMaxAttempts:       8,
		CollectMaxAttempts:        2,
		RotationTime:              "",
		TimeServers: []string{
			"https://www.google.com",
			"https://www.cloudflare.com",
			"https://www.amazon.com",
		},
		Challenge: ChallengeConfig{
			GraceSeconds:        8,
			SolveTimeoutSeconds: 180,
			PollIntervalMs:      500,
		},
		Headless:        false,
		KeepBrowserOpen: true,
		DryRun:          false,
		DebugMode:       false,
		Selectors: SelectorConfig{
			LoginIndicator:     "//egs-navigation",
			OrderHistoryBody:   "//pre",
			PurchaseButton:     "//button[@data-testid='purchase-cta-button']",
			AgeGateContinue:    "//button//span[text()='Continue']",
			PurchaseIframe:     "iframe[id*='webPurchaseContainer'], iframe[src*='purchase']",
			PlaceOrderFallback: "//button[contains(@class, 'payment-confirm__btn')]",
			OfferCard:          "//div[@data-testid='offer-card-layout-wrapper']",
			FreeLabel:          ".//span[text()='Free']",
			MoveToWishlist:     ".//button//span[text()='Move to wishlist']",
			CheckoutButton:     "//button//span[text()='Check Out']",
			LicenseAgree:       "//label[@for='agree']",
			LicenseAccept:      "//button//span[text()='Accept']",
		},
	}
}

func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := config.Save(path); err != nil {
			return nil, err
		}
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, err
	}

	if config.BrowserProfilePath != "" {
		if err := os.MkdirAll(config.BrowserProfilePath, 0755); err != nil {
			return nil, err
		}
	}

	return config, nil
}

func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
