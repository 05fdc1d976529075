package types

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// notification channels
const (
	CHANNEL_MAIL = "mail"
	CHANNEL_SMS  = "sms"
)

// notification kinds
const (
	NOTIFICATION_TYPE_CREDENTIAL_RESET    = "credential-reset"
	NOTIFICATION_TYPE_DEVICE_VERIFICATION = "device-verification"
	NOTIFICATION_TYPE_WELCOME             = "welcome"
)

type MessagingConfigs struct {
	GlobalTemplateConstants map[string]string `json:"global_template_constants" yaml:"global_template_constants"`

	SmtpBridgeConfig struct {
		URL            string        `json:"url" yaml:"url"`
		APIKey         string        `json:"api_key" yaml:"api_key"`
		RequestTimeout time.Duration `json:"request_timeout" yaml:"request_timeout"`
	} `json:"smtp_bridge_config" yaml:"smtp_bridge_config"`

	SMSGatewayConfig *SMSGatewayConfig `json:"sms_gateway_config" yaml:"sms_gateway_config"`
}

type SMSGatewayConfig struct {
	URL    string `json:"url" yaml:"url"`
	APIKey string `json:"api_key" yaml:"api_key"`
	From   string `json:"from" yaml:"from"`
}

type LocalizedTemplate struct {
	Lang        string `bson:"lang" json:"lang"`
	Subject     string `bson:"subject" json:"subject"`
	TemplateDef string `bson:"templateDef" json:"templateDef"` // base64 encoded
}

// NotificationTemplate defines the content of one notification kind on one channel.
type NotificationTemplate struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty" json:"id,omitempty"`
	MessageType     string              `bson:"messageType" json:"messageType"`
	Channel         string              `bson:"channel" json:"channel"`
	DefaultLanguage string              `bson:"defaultLanguage" json:"defaultLanguage"`
	From            string              `bson:"from" json:"from"`
	Translations    []LocalizedTemplate `bson:"translations" json:"translations"`
}

// SentNotification is the record kept after a successful dispatch.
type SentNotification struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID      string             `bson:"userID" json:"userID"`
	MessageType string             `bson:"messageType" json:"messageType"`
	Channel     string             `bson:"channel" json:"channel"`
	Recipient   string             `bson:"recipient" json:"recipient"`
	SentAt      time.Time          `bson:"sentAt" json:"sentAt"`
}
