package model

// SMTPSettings configures the outbound email integration. The password is
// accepted on input and persisted, but list/get responses blank it out.
type SMTPSettings struct {
	Host        string `json:"host"`
	Port        int    `json:"port"`
	Username    string `json:"username"`
	Password    string `json:"password,omitempty"`
	FromAddress string `json:"from_address"`
	FromName    string `json:"from_name"`
	UseTLS      bool   `json:"use_tls"`
	Enabled     bool   `json:"enabled"`
}

// SlackSettings configures the Slack notification integration. Message
// delivery itself is handled by the notification workers, not this server.
type SlackSettings struct {
	WebhookURL string `json:"webhook_url,omitempty"`
	Channel    string `json:"channel"`
	Username   string `json:"username"`
	Enabled    bool   `json:"enabled"`
}
