package service

import (
	"fmt"
	"strings"
)

func reportEmailTemplate(email ReportEmail) (string, string) {
	subject := fmt.Sprintf("Your SEO analysis report is ready - %s", email.WebsiteURL)
	body := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <style>
    body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Arial, sans-serif; line-height: 1.6; color: #333; }
    .container { max-width: 600px; margin: 0 auto; padding: 20px; }
    .card { background: #f8f9fa; padding: 20px; border-radius: 8px; margin: 20px 0; }
    .button { display: inline-block; background: #667eea; color: white; text-decoration: none; padding: 12px 30px; border-radius: 25px; font-weight: 600; }
    .warning { background: #fff3cd; border-left: 4px solid #ffc107; padding: 15px; margin: 20px 0; }
  </style>
</head>
<body>
  <div class="container">
    <h1>Your SEO analysis is complete</h1>
    <p>Hi %s,</p>
    <p>The SEO report you requested is ready.</p>
    <div class="card">
      <p><strong>Report:</strong> %s</p>
      <p><strong>Website:</strong> <a href="%s">%s</a></p>
      <p style="text-align: center; margin: 25px 0;">
        <a href="%s" class="button">View full report</a>
      </p>
    </div>
    <div class="warning">
      <p>This report link expires in %d days. Download it if you need a permanent copy.</p>
    </div>
  </div>
</body>
</html>`,
		email.UserName,
		email.ReportTitle,
		email.WebsiteURL, email.WebsiteURL,
		email.ReportURL,
		email.ExpirationDays,
	)

	return subject, body
}

func reminderEmailTemplate(reminder ReminderEmail) (string, string) {
	subject := fmt.Sprintf("Your SEO reports expire in %d days", reminder.DaysUntilExpiry)

	var items strings.Builder
	for _, report := range reminder.Reports {
		fmt.Fprintf(&items, `<li><a href="%s">%s</a> (%s)</li>`, report.ReportURL, report.ReportTitle, report.WebsiteURL)
	}

	body := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <style>
    body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Arial, sans-serif; line-height: 1.6; color: #333; }
    .container { max-width: 600px; margin: 0 auto; padding: 20px; }
  </style>
</head>
<body>
  <div class="container">
    <h1>Reports expiring soon</h1>
    <p>Hi %s,</p>
    <p>The following reports will expire in %d days and will no longer be accessible afterwards:</p>
    <ul>%s</ul>
    <p>Download any report you want to keep.</p>
  </div>
</body>
</html>`,
		reminder.UserName,
		reminder.DaysUntilExpiry,
		items.String(),
	)

	return subject, body
}
