// Package notify implements the Notifier external collaborator (spec.md
// §1, §4.9): fire-and-forget dispatch of a notification payload via a
// named provider. The provider registry and URL builders are adapted from
// the comparable dispatcher in _examples/pineappledr-vigil's
// internal/notify/providers.go, which models each provider as a typed
// ProviderDef assembling a Shoutrrr URL from named fields instead of a raw
// opaque string.
package notify

import (
	"fmt"
	"net/url"
	"strings"
)

// FieldType enumerates the input types a provider config form would render.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldPassword FieldType = "password"
	FieldNumber   FieldType = "number"
	FieldCheckbox FieldType = "checkbox"
)

// ProviderField describes one configuration input for a provider.
type ProviderField struct {
	Key      string
	Label    string
	Type     FieldType
	Required bool
}

// ProviderDef describes a notification provider's config schema.
type ProviderDef struct {
	Type   string
	Label  string
	Fields []ProviderField
}

var providerRegistry = map[string]ProviderDef{
	"telegram": {
		Type: "telegram", Label: "Telegram",
		Fields: []ProviderField{
			{Key: "bot_token", Label: "Bot Token", Type: FieldPassword, Required: true},
			{Key: "chat_id", Label: "Chat ID", Type: FieldText, Required: true},
		},
	},
	"discord": {
		Type: "discord", Label: "Discord",
		Fields: []ProviderField{
			{Key: "webhook_url", Label: "Discord Webhook URL", Type: FieldText, Required: true},
			{Key: "username", Label: "Bot Display Name", Type: FieldText},
		},
	},
	"slack": {
		Type: "slack", Label: "Slack",
		Fields: []ProviderField{
			{Key: "webhook_url", Label: "Webhook URL", Type: FieldText, Required: true},
			{Key: "bot_name", Label: "Username", Type: FieldText},
			{Key: "channel", Label: "Channel Name", Type: FieldText},
		},
	},
	"email": {
		Type: "email", Label: "Email (SMTP)",
		Fields: []ProviderField{
			{Key: "host", Label: "Hostname", Type: FieldText, Required: true},
			{Key: "port", Label: "Port", Type: FieldNumber, Required: true},
			{Key: "username", Label: "Username", Type: FieldText},
			{Key: "password", Label: "Password", Type: FieldPassword},
			{Key: "from", Label: "From Email", Type: FieldText, Required: true},
			{Key: "to", Label: "To Email", Type: FieldText, Required: true},
		},
	},
	"generic": {
		Type: "generic", Label: "Generic Webhook",
		Fields: []ProviderField{
			{Key: "webhook_url", Label: "Webhook URL", Type: FieldText, Required: true},
		},
	},
}

// GetProviderDef returns a single provider definition.
func GetProviderDef(providerType string) (ProviderDef, bool) {
	def, ok := providerRegistry[providerType]
	return def, ok
}

// ValidateFields checks that all required fields for a provider are present.
// Nothing in this module calls it: there is no monitor-save path here, and
// dispatch does not validate provider fields before sending.
func ValidateFields(providerType string, fields map[string]string) error {
	def, ok := providerRegistry[providerType]
	if !ok {
		return fmt.Errorf("unknown notification provider: %s", providerType)
	}
	for _, f := range def.Fields {
		if f.Required && strings.TrimSpace(fields[f.Key]) == "" {
			return fmt.Errorf("%s: %s is required", providerType, f.Label)
		}
	}
	return nil
}

// BuildShoutrrrURL assembles a Shoutrrr service URL from structured
// provider fields.
func BuildShoutrrrURL(providerType string, fields map[string]string) (string, error) {
	switch providerType {
	case "telegram":
		return buildTelegramURL(fields)
	case "discord":
		return buildDiscordURL(fields)
	case "slack":
		return buildSlackURL(fields)
	case "email":
		return buildEmailURL(fields)
	case "generic":
		return buildGenericURL(fields)
	default:
		return "", fmt.Errorf("unknown notification provider: %s", providerType)
	}
}

func buildTelegramURL(f map[string]string) (string, error) {
	token := strings.TrimSpace(f["bot_token"])
	chatID := strings.TrimSpace(f["chat_id"])
	if token == "" || chatID == "" {
		return "", fmt.Errorf("bot_token and chat_id are required")
	}
	params := url.Values{}
	params.Set("chats", chatID)
	return fmt.Sprintf("telegram://%s@telegram?%s", token, params.Encode()), nil
}

func buildDiscordURL(f map[string]string) (string, error) {
	webhookURL := strings.TrimSpace(f["webhook_url"])
	if webhookURL == "" {
		return "", fmt.Errorf("webhook_url is required")
	}
	trimmed := strings.TrimRight(webhookURL, "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) < 2 {
		return "", fmt.Errorf("invalid discord webhook url")
	}
	token := parts[len(parts)-1]
	id := parts[len(parts)-2]
	u := fmt.Sprintf("discord://%s@%s", token, id)
	if username := f["username"]; username != "" {
		u += "?" + (url.Values{"username": {username}}).Encode()
	}
	return u, nil
}

func buildSlackURL(f map[string]string) (string, error) {
	webhookURL := strings.TrimSpace(f["webhook_url"])
	if webhookURL == "" {
		return "", fmt.Errorf("webhook_url is required")
	}
	trimmed := strings.TrimRight(webhookURL, "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) < 3 {
		return "", fmt.Errorf("invalid slack webhook url")
	}
	a, b, c := parts[len(parts)-3], parts[len(parts)-2], parts[len(parts)-1]
	u := fmt.Sprintf("slack://%s/%s/%s", a, b, c)
	params := url.Values{}
	if f["bot_name"] != "" {
		params.Set("botname", f["bot_name"])
	}
	if f["channel"] != "" {
		params.Set("channel", f["channel"])
	}
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u, nil
}

func buildEmailURL(f map[string]string) (string, error) {
	host := strings.TrimSpace(f["host"])
	port := strings.TrimSpace(f["port"])
	from := strings.TrimSpace(f["from"])
	to := strings.TrimSpace(f["to"])
	if host == "" || port == "" || from == "" || to == "" {
		return "", fmt.Errorf("host, port, from, and to are required")
	}
	userinfo := ""
	if f["username"] != "" {
		userinfo = url.PathEscape(f["username"])
		if f["password"] != "" {
			userinfo += ":" + url.PathEscape(f["password"])
		}
		userinfo += "@"
	}
	params := url.Values{}
	params.Set("from", from)
	params.Set("to", to)
	return fmt.Sprintf("smtp://%s%s:%s/?%s", userinfo, host, port, params.Encode()), nil
}

func buildGenericURL(f map[string]string) (string, error) {
	webhookURL := strings.TrimSpace(f["webhook_url"])
	if webhookURL == "" {
		return "", fmt.Errorf("webhook_url is required")
	}
	if strings.HasPrefix(webhookURL, "generic+") || strings.HasPrefix(webhookURL, "generic://") {
		return webhookURL, nil
	}
	return "generic+" + webhookURL, nil
}
