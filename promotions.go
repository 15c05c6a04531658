package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	storeBase       = "https://store.epicgames.com"
	urlPromotions   = "https://store-site-backend-static.ak.epicgames.com/freeGamesPromotions"
	urlOrderHistory = "https://www.epicgames.com/account/v2/payment/ajaxGetOrderHistory"

	browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
)

func claimURL(locale string) string       { return storeBase + "/" + locale + "/free-games" }
func cartURL(locale string) string        { return storeBase + "/" + locale + "/cart" }
func cartSuccessURL(locale string) string { return storeBase + "/" + locale + "/cart/success" }
func productBase(locale string) string    { return storeBase + "/" + locale + "/p" }
func bundleBase(locale string) string     { return storeBase + "/" + locale + "/bundles" }

// PromotionGame is one currently-free catalog entry.
type PromotionGame struct {
	Title     string
	Namespace string
	URL       string

	// Raw catalog element, kept for diagnostics.
	Raw json.RawMessage
}

type catalogResponse struct {
	Data struct {
		Catalog struct {
			SearchStore struct {
				Elements []json.RawMessage `json:"elements"`
			} `json:"searchStore"`
		} `json:"Catalog"`
	} `json:"data"`
}

type catalogElement struct {
	Title       string `json:"title"`
	Namespace   string `json:"namespace"`
	OfferType   string `json:"offerType"`
	ProductSlug string `json:"productSlug"`
	URLSlug     string `json:"urlSlug"`

	Categories []struct {
		Path string `json:"path"`
	} `json:"categories"`

	OfferMappings []struct {
		PageSlug string `json:"pageSlug"`
	} `json:"offerMappings"`

	Promotions *struct {
		PromotionalOffers []struct {
			PromotionalOffers []struct {
				DiscountSetting struct {
					DiscountPercentage *float64 `json:"discountPercentage"`
				} `json:"discountSetting"`
			} `json:"promotionalOffers"`
		} `json:"promotionalOffers"`
	} `json:"promotions"`
}

// GetPromotions fetches the promotions catalog and returns this week's free
// entries. Never returns an error: a bad response yields an empty list.
func GetPromotions(config *Config, log *zap.SugaredLogger) []PromotionGame {
	locale := config.Locale
	if locale == "" {
		locale = DetectSystemLocale()
	}
	return fetchPromotions(urlPromotions, locale, config.RuntimeDir, log)
}

func fetchPromotions(endpoint, locale, runtimeDir string, log *zap.SugaredLogger) []PromotionGame {
	client := &http.Client{Timeout: 30 * time.Second}

	req, err := http.NewRequest("GET", endpoint+"?locale="+url.QueryEscape(locale), nil)
	if err != nil {
		log.Errorf("Failed to build promotions request: %v", err)
		return nil
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := client.Do(req)
	if err != nil {
		log.Errorf("Failed to get promotions: %v", err)
		return nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Errorf("Failed to read promotions response: %v", err)
		return nil
	}

	var catalog catalogResponse
	if err := json.Unmarshal(body, &catalog); err != nil {
		log.Errorf("Failed to parse promotions response: %v", err)
		return nil
	}

	writePromotionsCache(runtimeDir, body, log)

	var promotions []PromotionGame
	for _, raw := range catalog.Data.Catalog.SearchStore.Elements {
		var e catalogElement
		if err := json.Unmarshal(raw, &e); err != nil {
			continue
		}

		if !isCurrentlyFree(e) {
			continue
		}

		pageURL, err := buildPromotionURL(e, locale)
		if err != nil {
			log.Infof("Failed to derive URL for %q: %v", e.Title, err)
			continue
		}

		log.Infof("Weekly free: %s", pageURL)
		promotions = append(promotions, PromotionGame{
			Title:     e.Title,
			Namespace: e.Namespace,
			URL:       pageURL,
			Raw:       raw,
		})
	}

	return promotions
}

// isCurrentlyFree reports whether the entry's first promotional-offer group
// holds an offer discounted to exactly 0%. A merely-announced future discount
// lives in upcomingPromotionalOffers and does not qualify.
func isCurrentlyFree(e catalogElement) bool {
	if e.Promotions == nil || len(e.Promotions.PromotionalOffers) == 0 {
		return false
	}
	for _, offer := range e.Promotions.PromotionalOffers[0].PromotionalOffers {
		pct := offer.DiscountSetting.DiscountPercentage
		if pct != nil && *pct == 0 {
			return true
		}
	}
	return false
}

// buildPromotionURL derives the canonical store page for an entry. Bundles
// resolve under the bundles base, everything else under the product base.
// Slug priority: offer-mapping page slug, then product slug, then URL slug.
func buildPromotionURL(e catalogElement, locale string) (string, error) {
	isBundle := e.OfferType == "BUNDLE"
	if !isBundle {
		for _, cat := range e.Categories {
			if strings.Contains(strings.ToLower(cat.Path), "bundle") {
				isBundle = true
				break
			}
		}
	}
	if !isBundle && strings.Contains(e.Title, "Collection") {
		isBundle = true
	}

	base := productBase(locale)
	if isBundle {
		base = bundleBase(locale)
	}

	if len(e.OfferMappings) > 0 {
		slug := e.OfferMappings[0].PageSlug
		if slug == "" {
			return "", fmt.Errorf("offer mapping has no page slug")
		}
		return base + "/" + slug, nil
	}

	if e.ProductSlug != "" {
		return base + "/" + e.ProductSlug, nil
	}

	slug := e.URLSlug
	if slug == "" {
		slug = "unknown"
	}
	return base + "/" + slug, nil
}

// writePromotionsCache persists the raw catalog for diagnostics. Best-effort:
// discovery never fails because the cache could not be written.
func writePromotionsCache(runtimeDir string, body []byte, log *zap.SugaredLogger) {
	if runtimeDir == "" {
		return
	}

	if err := os.MkdirAll(runtimeDir, 0755); err != nil {
		log.Debugf("Failed to create runtime dir: %v", err)
		return
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, body, "", "  "); err != nil {
		pretty.Reset()
		pretty.Write(body)
	}

	path := filepath.Join(runtimeDir, "promotions.json")
	if err := os.WriteFile(path, pretty.Bytes(), 0644); err != nil {
		log.Debugf("Failed to write promotions cache: %v", err)
	}
}
