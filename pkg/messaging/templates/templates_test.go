package templates

import (
	"encoding/base64"
	"testing"

	messagingTypes "github.com/julb/iam-backend/pkg/messaging/types"
)

func TestResolveTemplate(t *testing.T) {
	t.Run("with empty template", func(t *testing.T) {
		if _, err := ResolveTemplate("test", "  ", nil); err == nil {
			t.Error("should fail for empty template")
		}
	})

	t.Run("with invalid template", func(t *testing.T) {
		if _, err := ResolveTemplate("test", "{{.token", nil); err == nil {
			t.Error("should fail for invalid template")
		}
	})

	t.Run("with placeholders", func(t *testing.T) {
		content, err := ResolveTemplate("test", "Your reset token: {{.token}}", map[string]string{"token": "abc123"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if content != "Your reset token: abc123" {
			t.Errorf("unexpected content: %s", content)
		}
	})
}

func TestCheckAllTranslationsParsable(t *testing.T) {
	encode := func(def string) string {
		return base64.StdEncoding.EncodeToString([]byte(def))
	}

	t.Run("accepts valid translations", func(t *testing.T) {
		translations := []messagingTypes.LocalizedTemplate{
			{Lang: "en", TemplateDef: encode("Your token: {{.token}}")},
			{Lang: "fr", TemplateDef: encode("Votre jeton: {{.token}}")},
		}
		if err := CheckAllTranslationsParsable(translations, "credential-reset"); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("rejects non base64 content", func(t *testing.T) {
		translations := []messagingTypes.LocalizedTemplate{
			{Lang: "en", TemplateDef: "not base64 !!"},
		}
		if err := CheckAllTranslationsParsable(translations, "credential-reset"); err == nil {
			t.Error("should fail for non base64 content")
		}
	})

	t.Run("rejects broken template syntax", func(t *testing.T) {
		translations := []messagingTypes.LocalizedTemplate{
			{Lang: "en", TemplateDef: encode("{{.token")},
		}
		if err := CheckAllTranslationsParsable(translations, "credential-reset"); err == nil {
			t.Error("should fail for broken template syntax")
		}
	})
}

func TestGetTemplateTranslation(t *testing.T) {
	translations := []messagingTypes.LocalizedTemplate{
		{Lang: "en", Subject: "Reset your password"},
		{Lang: "fr", Subject: "Reinitialisez votre mot de passe"},
	}

	t.Run("returns requested language", func(t *testing.T) {
		tr := GetTemplateTranslation(translations, "fr", "en")
		if tr.Lang != "fr" {
			t.Errorf("unexpected language: %s", tr.Lang)
		}
	})

	t.Run("falls back to default language", func(t *testing.T) {
		tr := GetTemplateTranslation(translations, "de", "en")
		if tr.Lang != "en" {
			t.Errorf("unexpected language: %s", tr.Lang)
		}
	})

	t.Run("returns empty when nothing matches", func(t *testing.T) {
		tr := GetTemplateTranslation(translations, "de", "es")
		if tr.Lang != "" {
			t.Errorf("unexpected language: %s", tr.Lang)
		}
	})
}
