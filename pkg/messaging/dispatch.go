package messaging

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	messagingDB "github.com/julb/iam-backend/pkg/db/messaging"
	httpclient "github.com/julb/iam-backend/pkg/http-client"
	"github.com/julb/iam-backend/pkg/messaging/templates"
	messagingTypes "github.com/julb/iam-backend/pkg/messaging/types"
)

var (
	smtpBridgeClient        *httpclient.ClientConfig
	smsGatewayConfig        *messagingTypes.SMSGatewayConfig
	globalTemplateConstants map[string]string
	messagingDBService      *messagingDB.MessagingDBService
)

func Init(
	bridgeClient *httpclient.ClientConfig,
	smsConfig *messagingTypes.SMSGatewayConfig,
	templateConstants map[string]string,
	mdb *messagingDB.MessagingDBService,
) {
	smtpBridgeClient = bridgeClient
	smsGatewayConfig = smsConfig
	globalTemplateConstants = templateConstants
	messagingDBService = mdb
}

// PostNotification resolves the tenant's template for the message type and channel and
// dispatches it to the recipient. Callers treat this as best effort: the identity
// operations run it in a goroutine and only log failures.
func PostNotification(
	tenantID string,
	messageType string,
	payload map[string]string,
	channel string,
	recipient string,
	userID string,
	lang string,
) error {
	if messagingDBService == nil {
		return errors.New("notification dispatch not initialized")
	}

	templateDef, err := messagingDBService.GetNotificationTemplate(tenantID, messageType, channel)
	if err != nil {
		return err
	}

	translation := templates.GetTemplateTranslation(templateDef.Translations, lang, templateDef.DefaultLanguage)

	decodedTemplate, err := base64.StdEncoding.DecodeString(translation.TemplateDef)
	if err != nil {
		return err
	}

	if payload == nil {
		payload = map[string]string{}
	}
	for k, v := range globalTemplateConstants {
		if _, ok := payload[k]; !ok {
			payload[k] = v
		}
	}
	payload["language"] = lang

	templateName := tenantID + messageType + channel + lang
	content, err := templates.ResolveTemplate(templateName, string(decodedTemplate), payload)
	if err != nil {
		return err
	}

	switch channel {
	case messagingTypes.CHANNEL_MAIL:
		subject, err := templates.ResolveTemplate(templateName+"-subject", translation.Subject, payload)
		if err != nil {
			return err
		}
		if err := sendMailViaBridge(recipient, subject, content); err != nil {
			return err
		}
	case messagingTypes.CHANNEL_SMS:
		from := templateDef.From
		if from == "" && smsGatewayConfig != nil {
			from = smsGatewayConfig.From
		}
		if err := sendSMSViaGateway(recipient, content, from); err != nil {
			return err
		}
	default:
		return errors.New("unsupported notification channel")
	}

	_, err = messagingDBService.AddToSentNotifications(tenantID, messagingTypes.SentNotification{
		UserID:      userID,
		MessageType: messageType,
		Channel:     channel,
		Recipient:   recipient,
	})
	if err != nil {
		slog.Error("failed to save sent notification", slog.String("error", err.Error()))
	}
	return nil
}

// HasRecentlySent reports whether a notification of the given type went out to the
// user within the given window. Used to throttle user triggered resends.
func HasRecentlySent(tenantID string, userID string, messageType string, within time.Duration) bool {
	if messagingDBService == nil {
		return false
	}
	last, err := messagingDBService.GetLastSentNotification(tenantID, userID, messageType)
	if err != nil {
		return false
	}
	return time.Since(last.SentAt) < within
}

type sendEmailReq struct {
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Content string   `json:"content"`
}

func sendMailViaBridge(to string, subject string, content string) error {
	if smtpBridgeClient == nil || smtpBridgeClient.RootURL == "" {
		return errors.New("connection to smtp bridge not initialized")
	}

	resp, err := smtpBridgeClient.RunHTTPcall("/send-email", sendEmailReq{
		To:      []string{to},
		Subject: subject,
		Content: content,
	})
	if err == nil && resp != nil {
		errMsg, hasError := resp["error"]
		if hasError {
			err = errors.New(errMsg.(string))
		}
	}
	return err
}

type smsSendingReq struct {
	APIKey  string `json:"apiKey"`
	To      string `json:"to"`
	From    string `json:"from"`
	Content string `json:"content"`
}

func sendSMSViaGateway(to string, content string, from string) error {
	if smsGatewayConfig == nil || smsGatewayConfig.URL == "" {
		return errors.New("connection to sms gateway not initialized")
	}

	payload := smsSendingReq{
		APIKey:  smsGatewayConfig.APIKey,
		To:      to,
		From:    from,
		Content: content,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Post(smsGatewayConfig.URL, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Error("sms gateway returned error", slog.String("status", resp.Status))
		return errors.New("sms gateway returned error")
	}
	return nil
}
