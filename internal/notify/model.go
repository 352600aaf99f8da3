package notify

import "time"

const (
	KindCustomer = "customer"
	KindAdmin    = "admin"
)

// Message is one outbound email.
type Message struct {
	Kind    string
	From    string
	To      []string
	ReplyTo string
	Subject string
	HTML    string
}

type DispatcherConfig struct {
	From        string
	AdminEmail  string
	QueueSize   int
	MaxAttempts int
	// Backoff is the delay before the second attempt; it doubles after that.
	Backoff time.Duration
}

func (c DispatcherConfig) withDefaults() DispatcherConfig {
	if c.QueueSize <= 0 {
		c.QueueSize = 100
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.Backoff <= 0 {
		c.Backoff = 2 * time.Second
	}
	return c
}
