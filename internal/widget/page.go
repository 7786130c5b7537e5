package widget

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// PageOptions controls the document wrapped around the panel.
type PageOptions struct {
	Title string
	// SocketPath enables live updates from the viewer hub when non-empty.
	SocketPath string
}

const pageHead = `<!DOCTYPE html>
<html lang="`

const pageStyle = `<style>
body { margin: 0; font-family: system-ui, -apple-system, sans-serif; color: #31333f; }
.greeting-widget h3 { margin: 1.17em 0; }
.greeting-widget p { margin: 1em 0; line-height: 1.5; }
</style>`

// The page reports its height to an embedding parent the way iframe
// components do, and swaps in new markup pushed over the viewer socket.
const pageScript = `<script>
(function () {
  var root = document.getElementById("widget-root");
  function post(type, data) {
    if (window.parent === window) { return; }
    var msg = Object.assign({ type: type }, data || {});
    window.parent.postMessage(msg, "*");
  }
  function report() { post("setFrameHeight", { height: root.scrollHeight }); }
  post("componentReady", { apiVersion: 1 });
  report();
  var path = root.getAttribute("data-socket");
  if (!path) { return; }
  function connect() {
    var proto = window.location.protocol === "https:" ? "wss:" : "ws:";
    var ws = new WebSocket(proto + "//" + window.location.host + path);
    ws.onmessage = function (event) {
      var msg = JSON.parse(event.data);
      if (msg.type === "component_update") {
        root.innerHTML = msg.content;
        report();
      } else if (msg.type === "full_reload") {
        window.location.reload();
      }
    };
    ws.onclose = function () { setTimeout(connect, 2000); };
  }
  connect();
})();
</script>`

// Page renders a standalone HTML document containing the panel.
func Page(v View, opts PageOptions) templ.Component {
	title := opts.Title
	if title == "" {
		title = "Greeting widget"
	}

	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		head := []string{
			pageHead, templ.EscapeString(v.Locale), `">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>`, templ.EscapeString(title), `</title>
`, pageStyle, `
</head>
<body>
<div id="widget-root" data-socket="`, templ.EscapeString(opts.SocketPath), `">`,
		}
		for _, p := range head {
			if _, err := io.WriteString(w, p); err != nil {
				return err
			}
		}

		if err := Greeting(v).Render(ctx, w); err != nil {
			return err
		}

		for _, p := range []string{"</div>\n", pageScript, "\n</body>\n</html>\n"} {
			if _, err := io.WriteString(w, p); err != nil {
				return err
			}
		}
		return nil
	})
}
