package payment

import "html/template"

var checkoutPage = template.Must(template.New("checkout").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>{{.Options.Name}} checkout</title>
  <script src="{{.ScriptURL}}"></script>
</head>
<body>
<script>
  var options = {{.Options}};
  var scheme = location.protocol === "https:" ? "wss://" : "ws://";
  var socket = new WebSocket(scheme + location.host + location.pathname.replace(/\/$/, "") + "/ws" + location.search);
  var sent = false;

  function relay(msg) {
    if (sent) { return; }
    sent = true;
    socket.send(msg);
  }

  options.handler = function (response) { relay(JSON.stringify(response)); };
  options.modal = { ondismiss: function () { relay("dismissed"); } };

  socket.onopen = function () {
    var checkout = new Razorpay(options);
    checkout.open();
  };
</script>
</body>
</html>
`))

type pageData struct {
	ScriptURL string
	Options   Config
}
