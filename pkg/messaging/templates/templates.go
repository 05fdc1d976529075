package templates

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"text/template"

	messagingTypes "github.com/julb/iam-backend/pkg/messaging/types"
)

func ResolveTemplate(tempName string, templateDef string, contentInfos map[string]string) (content string, err error) {
	if strings.TrimSpace(templateDef) == "" {
		return "", errors.New("empty template " + tempName)
	}
	tmpl, err := template.New(tempName).Parse(templateDef)
	if err != nil {
		return "", fmt.Errorf("error when parsing template %s: %v", tempName, err)
	}

	var tpl bytes.Buffer
	if err := tmpl.Execute(&tpl, contentInfos); err != nil {
		return "", fmt.Errorf("error during executing template %s: %v", tempName, err)
	}
	return tpl.String(), nil
}

// CheckAllTranslationsParsable verifies that every translation of a template decodes
// and parses, so broken templates are rejected before they are stored.
func CheckAllTranslationsParsable(translations []messagingTypes.LocalizedTemplate, messageType string) error {
	for _, tr := range translations {
		decoded, err := base64.StdEncoding.DecodeString(tr.TemplateDef)
		if err != nil {
			return fmt.Errorf("template for %s (%s) is not base64 encoded: %v", messageType, tr.Lang, err)
		}
		if _, err := template.New(messageType + tr.Lang).Parse(string(decoded)); err != nil {
			return fmt.Errorf("template for %s (%s) is not parsable: %v", messageType, tr.Lang, err)
		}
	}
	return nil
}

func GetTemplateTranslation(translations []messagingTypes.LocalizedTemplate, lang string, defaultLang string) messagingTypes.LocalizedTemplate {
	var defaultTranslation messagingTypes.LocalizedTemplate
	for _, tr := range translations {
		if tr.Lang == lang {
			return tr
		} else if tr.Lang == defaultLang {
			defaultTranslation = tr
		}
	}
	return defaultTranslation
}
