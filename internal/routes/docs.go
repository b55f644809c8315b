package routes

import (
	"bytes"
	"html/template"

	"github.com/gofiber/fiber/v2"
	"github.com/meryambn/ScaleUpMessaging/internal/config"
)

const docsIndexHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{ .Title }}</title>
  <style>
    body { margin: 0 auto; max-width: 960px; padding: 32px 16px; font-family: Georgia, serif; color: #132019; }
    h1 { font-size: 1.6rem; }
    code, pre { background: #0f172a; color: #e2e8f0; border-radius: 6px; padding: 2px 6px; }
    pre { padding: 12px; overflow-x: auto; }
    table { border-collapse: collapse; width: 100%; }
    th, td { border: 1px solid #d8ddd6; padding: 6px 10px; text-align: left; }
  </style>
</head>
<body>
  <h1>{{ .Title }}</h1>
  <p>REST endpoints (all under <code>/api/v1</code>, Bearer token required):</p>
  <table>
    <tr><th>Method</th><th>Path</th><th>Purpose</th></tr>
    <tr><td>GET</td><td>/realtime/config</td><td>Advertised poll interval and typing expiry</td></tr>
    <tr><td>GET</td><td>/contacts</td><td>Role-scoped contact directory</td></tr>
    <tr><td>GET</td><td>/conversations</td><td>Last message and unread count per contact</td></tr>
    <tr><td>GET</td><td>/messages?contactId=&amp;role=</td><td>Paginated history with one contact</td></tr>
    <tr><td>POST</td><td>/messages</td><td>Send a message (authoritative path)</td></tr>
    <tr><td>PUT</td><td>/messages/:id/read</td><td>Mark one message read (idempotent)</td></tr>
    <tr><td>PUT</td><td>/conversations/read</td><td>Mark a whole thread read</td></tr>
  </table>
  <p>Realtime channel: <code>GET /api/v1/ws?token=&lt;jwt&gt;</code>. Events are
  JSON envelopes <code>{"event", "payload", "timestamp"}</code>.</p>
  <table>
    <tr><th>Event</th><th>Direction</th><th>Payload</th></tr>
    <tr><td>new_message</td><td>server → client</td><td>Message</td></tr>
    <tr><td>typing_start / typing_stop</td><td>both</td><td>{sender, recipient pair}</td></tr>
    <tr><td>message_read</td><td>server → client</td><td>{message_id, reader pair}</td></tr>
    <tr><td>conversation_read</td><td>server → client</td><td>{reader pair}</td></tr>
  </table>
  <p>Typing signals are relayed to the addressed user only. Messages never
  travel client → server over the socket; sending is always REST.</p>
</body>
</html>`

func registerDocsRoutes(app *fiber.App, cfg *config.Config) error {
	if !cfg.DocsEnabled() {
		return nil
	}

	tmpl, err := template.New("docs").Parse(docsIndexHTML)
	if err != nil {
		return err
	}

	var rendered bytes.Buffer
	if err := tmpl.Execute(&rendered, struct{ Title string }{Title: "ScaleUp Messaging API"}); err != nil {
		return err
	}
	page := rendered.Bytes()

	app.Get("/docs", func(c *fiber.Ctx) error {
		c.Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'")
		c.Set("Content-Type", fiber.MIMETextHTMLCharsetUTF8)
		return c.Send(page)
	})

	return nil
}
