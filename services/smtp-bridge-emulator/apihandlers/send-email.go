package apihandlers

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	mw "github.com/julb/iam-backend/pkg/apihelpers/middlewares"

	sc "github.com/julb/iam-backend/pkg/smtp-client"
)

func (h *HttpEndpoints) AddRoutes(rg *gin.RouterGroup) {
	rg.POST("/send-email",
		mw.HasValidServiceKey(h.apiKeys),
		h.sendEmail)
}

type SendEmailReq struct {
	To              []string            `json:"to"`
	Subject         string              `json:"subject"`
	Content         string              `json:"content"`
	HeaderOverrides *sc.HeaderOverrides `json:"headerOverrides"`
}

func (h *HttpEndpoints) saveEmailAsHtml(email SendEmailReq) error {
	for _, recipient := range email.To {
		folderPath := filepath.Join(h.emailsDir, recipient)
		if err := os.MkdirAll(folderPath, os.ModePerm); err != nil {
			slog.Error("Error creating folder for recipient", slog.String("recipient", recipient), slog.String("error", err.Error()))
			return err
		}

		htmlFilePath, err := getUniqueHTMLFilePath(folderPath, email.Subject)
		if err != nil {
			slog.Error("Error generating HTML file path", slog.String("recipient", recipient), slog.String("error", err.Error()))
			return err
		}

		if err := os.WriteFile(htmlFilePath, []byte(email.Content), 0644); err != nil {
			slog.Error("Error writing HTML file for "+recipient, slog.String("error", err.Error()))
			return err
		}

		slog.Info("saved email", slog.String("recipient", recipient), slog.String("file", htmlFilePath))
	}
	return nil
}

// returns a unique file path for the HTML file, appending a counter if needed.
func getUniqueHTMLFilePath(folderPath, subject string) (string, error) {
	baseFileName := getHTMLFilename(subject)
	htmlFilePath := filepath.Join(folderPath, baseFileName)
	counter := 1

	// Check if the file already exists, and append a counter if necessary
	for {
		if _, err := os.Stat(htmlFilePath); errors.Is(err, os.ErrNotExist) {
			break
		}
		baseName := filepath.Base(htmlFilePath)
		ext := filepath.Ext(htmlFilePath)
		baseNameWithoutExt := baseName[:len(baseName)-len(ext)]

		htmlFilePath = filepath.Join(folderPath, baseNameWithoutExt+"_"+strconv.Itoa(counter)+".html")
		counter++
	}

	return htmlFilePath, nil
}

// generates a valid file name for the HTML file based on the subject.
func getHTMLFilename(subject string) string {
	invalidChars := regexp.MustCompile(`[\/\\:?"<>|]`)
	sanitizedFileName := invalidChars.ReplaceAllString(subject, "_")

	if len(sanitizedFileName) > 10 {
		sanitizedFileName = sanitizedFileName[:10]
	}

	timestamp := time.Now().Format("20060102_150405")
	return timestamp + "_" + sanitizedFileName + ".html"
}

func (h *HttpEndpoints) sendEmail(c *gin.Context) {
	var req SendEmailReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if len(req.To) < 1 {
		slog.Error("missing 'to' field")
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing 'to' field"})
		return
	}

	if err := h.saveEmailAsHtml(req); err != nil {
		slog.Error("Email could not be saved into HTML file(s)", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Email could not be saved into HTML file(s)"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Email has been saved into HTML file(s)"})
}
