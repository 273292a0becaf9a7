package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/rankriot/rankriot/internal/common"
	"github.com/rankriot/rankriot/internal/models"
)

// Mailer sends scan-completion emails through an HTTP email API. Delivery
// failures are logged by callers and never affect scan state.
type Mailer struct {
	config common.NotifierConfig
	client *http.Client
	logger arbor.ILogger
}

// NewMailer creates the notifier. A disabled config yields a no-op sender.
func NewMailer(cfg common.NotifierConfig, logger arbor.ILogger) *Mailer {
	return &Mailer{
		config: cfg,
		client: &http.Client{Timeout: 15 * time.Second},
		logger: logger,
	}
}

type emailPayload struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// SendScanComplete emails the project owner a scan summary
func (m *Mailer) SendScanComplete(ctx context.Context, email string, project *models.Project, scan *models.Scan) error {
	if !m.config.Enabled || email == "" {
		return nil
	}

	subject := fmt.Sprintf("Scan complete for %s", project.Name)
	if scan.Status == models.ScanStatusFailed {
		subject = fmt.Sprintf("Scan failed for %s", project.Name)
	}

	payload := emailPayload{
		From:    m.config.FromEmail,
		To:      []string{email},
		Subject: subject,
		HTML:    renderSummary(project, scan),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.config.APIKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("email API returned status %d", resp.StatusCode)
	}

	m.logger.Info().Str("scan_id", scan.ID).Str("to", email).Msg("Scan notification sent")
	return nil
}

func renderSummary(project *models.Project, scan *models.Scan) string {
	if scan.Status == models.ScanStatusFailed {
		return fmt.Sprintf(
			"<h2>Scan failed</h2><p>The scan of <strong>%s</strong> did not finish.</p><p>%s</p>",
			project.Name, scan.Error)
	}
	return fmt.Sprintf(
		"<h2>Scan complete</h2><p>The scan of <strong>%s</strong> finished.</p>"+
			"<ul><li>Pages scanned: %d</li><li>Links found: %d</li><li>Issues found: %d</li></ul>",
		project.Name, scan.PagesScanned, scan.LinksScanned, scan.IssuesFound)
}
