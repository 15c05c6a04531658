package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

// Checkout drives one browser page through the acquisition flows: product
// page classification, instant checkout, and the cart checkout with its
// embedded payment iframe. It keeps no state across calls beyond the page.
type Checkout struct {
	page   *rod.Page
	config *Config
	solver ChallengeSolver
	locale string
	log    *zap.SugaredLogger
}

func NewCheckout(page *rod.Page, config *Config, solver ChallengeSolver, locale string, log *zap.SugaredLogger) *Checkout {
	return &Checkout{
		page:   page,
		config: config,
		solver: solver,
		locale: locale,
		log:    log,
	}
}

func (c *Checkout) seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// isTimeoutErr classifies the transient interaction failures worth retrying:
// rod wraps element/navigation deadline misses in context.DeadlineExceeded.
func isTimeoutErr(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

// CollectWeeklyGames acquires every pending promotion. The whole pass is
// retried once more on a timeout-class failure, then the error is surfaced.
func (c *Checkout) CollectWeeklyGames(promotions []PromotionGame) error {
	urls := make([]string, 0, len(promotions))
	for _, p := range promotions {
		urls = append(urls, p.URL)
	}

	attempts := c.config.CollectMaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	op := func() error {
		err := c.collectOnce(urls)
		if err != nil && !isTimeoutErr(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(attempts-1))
	return backoff.Retry(op, policy)
}

func (c *Checkout) collectOnce(urls []string) error {
	hasCartItems, err := c.AddPromotionToCart(urls)
	if err != nil {
		return err
	}

	if !hasCartItems {
		c.log.Infof("Process completed (instant claimed or already owned)")
		return nil
	}

	if err := c.purchaseFreeGame(); err != nil {
		return err
	}

	if err := c.waitForCartSuccess(); err != nil {
		c.log.Warnf("Failed to collect cart games: %v", err)
		return nil
	}

	c.log.Infof("Successfully collected cart games")
	return nil
}

// AddPromotionToCart visits each promotion page and acts on its purchase
// control. Returns true when at least one offer is now waiting in the cart.
func (c *Checkout) AddPromotionToCart(urls []string) (bool, error) {
	hasPendingCartItems := false

	for _, pageURL := range urls {
		if err := c.page.Navigate(pageURL); err != nil {
			return hasPendingCartItems, fmt.Errorf("failed to open %s: %w", pageURL, err)
		}
		if err := c.page.WaitLoad(); err != nil {
			return hasPendingCartItems, fmt.Errorf("page failed to load %s: %w", pageURL, err)
		}

		if info, err := c.page.Info(); err == nil && isNotFoundTitle(info.Title) {
			c.log.Errorf("Invalid URL (404 page): %s", pageURL)
			continue
		}

		c.dismissAgeGate()

		btn, err := c.page.Timeout(c.seconds(c.config.ButtonTimeoutSeconds)).
			ElementX(c.config.Selectors.PurchaseButton)
		if err != nil {
			// Owned titles sometimes render without the purchase control
			// entirely; the page text is the only signal left.
			if c.pageTextIndicatesOwned() {
				c.log.Infof("Already in the library (page text scan): %s", pageURL)
			} else {
				c.log.Warnf("Could not find any purchase button: %s", pageURL)
			}
			continue
		}

		btnText, err := btn.Text()
		if err != nil {
			btnText = ""
		}
		action := classifyButton(btnText)
		c.log.Debugf("Purchase button %q -> %s: %s", strings.TrimSpace(btnText), action, pageURL)

		switch action {
		case actionSkip:
			c.log.Infof("Offer status is %q, skipping: %s", strings.TrimSpace(btnText), pageURL)

		case actionAddToCart:
			if c.config.DryRun {
				c.log.Infof("Dry run: would add to cart: %s", pageURL)
				continue
			}
			if err := btn.Click(proto.InputMouseButtonLeft, 1); err != nil {
				return hasPendingCartItems, fmt.Errorf("failed to click cart button: %w", err)
			}
			hasPendingCartItems = true

		default:
			if c.config.DryRun {
				c.log.Infof("Dry run: would claim instantly: %s", pageURL)
				continue
			}
			if err := btn.Click(proto.InputMouseButtonLeft, 1); err != nil {
				return hasPendingCartItems, fmt.Errorf("failed to click claim button: %w", err)
			}
			c.handleInstantCheckout()
		}
	}

	return hasPendingCartItems, nil
}

func (c *Checkout) dismissAgeGate() {
	el, err := c.page.Timeout(c.seconds(c.config.AgeGateTimeoutSeconds)).
		ElementX(c.config.Selectors.AgeGateContinue)
	if err != nil {
		return
	}
	if visible, err := el.Visible(); err != nil || !visible {
		return
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		c.log.Debugf("Age gate click failed: %v", err)
	}
}

func (c *Checkout) pageTextIndicatesOwned() bool {
	body, err := c.page.Timeout(3 * time.Second).Element("body")
	if err != nil {
		return false
	}
	text, err := body.Text()
	if err != nil {
		return false
	}
	return textIndicatesOwned(text)
}

// handleInstantCheckout finishes a direct-claim click. Errors never leave
// this method: the claim may well have gone through, so the page is reloaded
// and the run moves on.
func (c *Checkout) handleInstantCheckout() {
	c.log.Infof("Triggering instant checkout flow")

	if err := c.runInstantCheckout(); err != nil {
		c.log.Warnf("Instant checkout warning (game might still be claimed): %v", err)
		if rerr := c.page.Reload(); rerr != nil {
			c.log.Debugf("Page reload failed: %v", rerr)
		}
	}
}

func (c *Checkout) runInstantCheckout() error {
	_, payBtn, err := c.activePurchaseContainer()
	if err != nil {
		return err
	}

	if c.config.DryRun {
		c.log.Infof("Dry run: stopping before placing the order")
		return nil
	}

	if err := payBtn.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("failed to click payment button: %w", err)
	}

	// Give the challenge widget time to mount before watching it.
	time.Sleep(c.seconds(c.config.ChallengeInitDelaySeconds))

	if err := c.solver.WaitForChallenge(); err != nil {
		c.log.Infof("Challenge skipped (likely not needed): %v", err)
	}

	visible, err := payBtn.Visible()
	if err != nil {
		c.log.Infof("Instant checkout: purchase iframe closed (success inferred)")
		return nil
	}
	if !visible {
		c.log.Infof("Instant checkout: payment button disappeared (success inferred)")
		return nil
	}

	// The button is still there. One blind click, then stop; success past
	// this point is inferred, never confirmed.
	if err := payBtn.Click(proto.InputMouseButtonLeft, 1); err == nil {
		time.Sleep(2 * time.Second)
	}
	c.log.Infof("Instant checkout flow finished (blind success)")
	return nil
}

// activePurchaseContainer locates the embedded payment iframe and its
// place-order control: exact text match first, CSS-class fallback second.
func (c *Checkout) activePurchaseContainer() (*rod.Page, *rod.Element, error) {
	c.log.Debugf("Scanning for purchase iframe")

	iframeEl, err := c.page.Timeout(10 * time.Second).Element(c.config.Selectors.PurchaseIframe)
	if err != nil {
		return nil, nil, fmt.Errorf("purchase iframe not found: %w", err)
	}
	frame, err := iframeEl.Frame()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to enter purchase iframe: %w", err)
	}

	if btn, err := frame.Timeout(c.seconds(c.config.PlaceOrderTimeoutSeconds)).
		ElementR("button", "PLACE ORDER"); err == nil {
		c.log.Debugf("Found place-order button via text match")
		return frame, btn, nil
	}

	if btn, err := frame.Timeout(c.seconds(c.config.FallbackTimeoutSeconds)).
		ElementX(c.config.Selectors.PlaceOrderFallback); err == nil {
		c.log.Debugf("Found place-order button via class match")
		return frame, btn, nil
	}

	return nil, nil, fmt.Errorf("place-order button not found in purchase iframe")
}

// emptyCart moves every paid line item to the wishlist. Removal re-renders
// the cart, so the scan repeats down the countdown until only free items
// remain. Returns false only on a timeout-class failure; an exhausted
// countdown is not distinguished from success.
func (c *Checkout) emptyCart(countdown int) bool {
	hasPaidItems := false

	cards, err := c.page.ElementsX(c.config.Selectors.OfferCard)
	if err != nil {
		c.log.Warnf("Failed to empty shopping cart: %v", err)
		return false
	}

	for _, card := range cards {
		free, err := card.ElementsX(c.config.Selectors.FreeLabel)
		if err == nil && len(free) > 0 {
			continue
		}

		hasPaidItems = true
		wishlistBtns, err := card.ElementsX(c.config.Selectors.MoveToWishlist)
		if err != nil || len(wishlistBtns) == 0 {
			c.log.Warnf("Failed to empty shopping cart: wishlist control missing")
			return false
		}
		if err := wishlistBtns.First().Click(proto.InputMouseButtonLeft, 1); err != nil {
			c.log.Warnf("Failed to empty shopping cart: %v", err)
			return false
		}
	}

	if hasPaidItems && countdown > 0 {
		time.Sleep(2 * time.Second)
		return c.emptyCart(countdown - 1)
	}

	return true
}

// purchaseFreeGame runs the cart checkout. Each failed attempt reloads the
// page and retries under exponential backoff up to the configured cap;
// exhaustion is a reported failure, not a silent loop.
func (c *Checkout) purchaseFreeGame() error {
	attempts := c.config.PurchaseMaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	attempt := 0
	op := func() error {
		attempt++
		if err := c.runCartCheckout(); err != nil {
			c.log.Warnf("Cart checkout attempt %d failed: %v", attempt, err)
			if rerr := c.page.Reload(); rerr != nil {
				c.log.Debugf("Page reload failed: %v", rerr)
			}
			return err
		}
		return nil
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(attempts-1))
	if err := backoff.Retry(op, policy); err != nil {
		return fmt.Errorf("cart checkout failed after %d attempts: %w", attempt, err)
	}
	return nil
}

func (c *Checkout) runCartCheckout() error {
	if err := c.page.Navigate(cartURL(c.locale)); err != nil {
		return fmt.Errorf("failed to open cart: %w", err)
	}
	if err := c.page.WaitLoad(); err != nil {
		return fmt.Errorf("cart failed to load: %w", err)
	}

	c.log.Debugf("Move all paid games out of the shopping cart")
	c.emptyCart(c.config.CartRerenderBound)

	checkoutBtn, err := c.page.Timeout(10 * time.Second).ElementX(c.config.Selectors.CheckoutButton)
	if err != nil {
		return fmt.Errorf("checkout button not found: %w", err)
	}

	if c.config.DryRun {
		c.log.Infof("Dry run: stopping before cart checkout")
		return nil
	}

	if err := checkoutBtn.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("failed to click checkout button: %w", err)
	}

	c.agreeLicense()

	frame, _, err := c.activePurchaseContainer()
	if err != nil {
		return err
	}

	c.ukConfirmOrder(frame)

	if err := c.solver.WaitForChallenge(); err != nil {
		return fmt.Errorf("failed to solve challenge: %w", err)
	}

	return nil
}

// agreeLicense ticks the EULA checkbox when the storefront asks for it.
// Absence is normal flow, not an error.
func (c *Checkout) agreeLicense() {
	c.log.Debugf("Agree license")

	label, err := c.page.Timeout(c.seconds(c.config.LicenseTimeoutSeconds)).
		ElementX(c.config.Selectors.LicenseAgree)
	if err != nil {
		return
	}
	if err := label.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return
	}

	accept, err := c.page.Timeout(2 * time.Second).ElementX(c.config.Selectors.LicenseAccept)
	if err != nil {
		return
	}
	if visible, err := accept.Visible(); err == nil && visible {
		if err := accept.Click(proto.InputMouseButtonLeft, 1); err != nil {
			c.log.Debugf("License accept click failed: %v", err)
		}
	}
}

// ukConfirmOrder clicks the region-specific confirmation some checkouts show
// in place of the standard place-order control. Best-effort.
func (c *Checkout) ukConfirmOrder(frame *rod.Page) {
	c.log.Debugf("UK confirm order")

	btn, err := frame.Timeout(5 * time.Second).ElementX(c.config.Selectors.PlaceOrderFallback)
	if err != nil {
		return
	}
	if visible, err := btn.Visible(); err != nil || !visible {
		return
	}
	if err := btn.Click(proto.InputMouseButtonLeft, 1); err != nil {
		c.log.Debugf("UK confirm click failed: %v", err)
	}
}

func (c *Checkout) waitForCartSuccess() error {
	deadline := time.Now().Add(c.seconds(c.config.CartSuccessTimeoutSeconds))
	target := cartSuccessURL(c.locale)

	for time.Now().Before(deadline) {
		result, err := c.page.Eval(`() => window.location.href`)
		if err == nil && strings.HasPrefix(result.Value.Str(), target) {
			return nil
		}
		time.Sleep(500 * time.Millisecond)
	}

	return fmt.Errorf("cart success page not reached within %ds", c.config.CartSuccessTimeoutSeconds)
}
