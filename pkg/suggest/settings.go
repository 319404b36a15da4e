package suggest

// Settings returns the resolved configuration.
func (c *Controller) Settings() Settings { return c.settings }

// Configure applies a partial update. Absent fields keep their value.
func (c *Controller) Configure(o Options) {
	next := c.settings.Apply(o)
	if next == c.settings {
		return
	}
	c.settings = next
	if c.settings.APIKey == "" {
		c.timer.stop()
	}
	c.log.Debug("Settings updated", "endpoint", next.APIEndpoint, "model", next.ModelName, "delay", next.SuggestionDelay)
}

func (c *Controller) APIKey() string { return c.settings.APIKey }

func (c *Controller) SetAPIKey(key string) { c.Configure(Options{APIKey: &key}) }

// SuggestionDelay returns the debounce delay in seconds.
func (c *Controller) SuggestionDelay() float64 { return c.settings.SuggestionDelay }

// SetSuggestionDelay sets the debounce delay in seconds, at least MinSuggestionDelay.
func (c *Controller) SetSuggestionDelay(seconds float64) {
	c.Configure(Options{SuggestionDelay: &seconds})
}

func (c *Controller) SystemPrompt() string { return c.settings.SystemPrompt }

func (c *Controller) SetSystemPrompt(prompt string) { c.Configure(Options{SystemPrompt: &prompt}) }

func (c *Controller) APIEndpoint() string { return c.settings.APIEndpoint }

func (c *Controller) SetAPIEndpoint(endpoint string) { c.Configure(Options{APIEndpoint: &endpoint}) }

func (c *Controller) ModelName() string { return c.settings.ModelName }

func (c *Controller) SetModelName(model string) { c.Configure(Options{ModelName: &model}) }

// Context returns the extra context prepended to every prompt.
func (c *Controller) Context() string { return c.settings.Context }

func (c *Controller) SetContext(context string) { c.Configure(Options{Context: &context}) }
