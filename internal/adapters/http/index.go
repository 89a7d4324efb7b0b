package http

import "github.com/gofiber/fiber/v2"

// indexHTML is the interactive globe: a text field for the destination and
// a plotly.js view that is redrawn from /v1/scene on every submit. The
// camera is kept across redraws.
const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>globetrace</title>
  <script src="https://cdn.plot.ly/plotly-2.35.2.min.js"></script>
  <style>
    html,body{margin:0;height:100%;background:#000;color:#eee;font-family:system-ui,sans-serif}
    form{position:absolute;top:12px;left:12px;z-index:10;display:flex;gap:6px}
    input{width:280px;padding:6px 8px;background:#111;color:#eee;border:1px solid #444}
    #status{position:absolute;bottom:12px;left:12px;z-index:10;font-size:13px;color:#aaa;white-space:pre}
    #globe{width:100%;height:100%}
  </style>
</head>
<body>
  <form id="trace">
    <input id="target" placeholder="host or IP, empty for the bare globe" autocomplete="off">
    <button type="submit">Trace</button>
  </form>
  <div id="status"></div>
  <div id="globe"></div>
  <script>
    const status = document.getElementById('status');

    function traces(scene) {
      const c = scene.surface.color;
      const data = [{
        type: 'surface',
        x: scene.surface.mesh.x, y: scene.surface.mesh.y, z: scene.surface.mesh.z,
        colorscale: [[0, c], [1, c]], showscale: false, hoverinfo: 'skip',
      }];
      for (const l of scene.lines) {
        data.push({
          type: 'scatter3d', mode: 'lines', x: l.x, y: l.y, z: l.z, name: l.name || '',
          line: {color: l.color, width: l.width},
          hoverinfo: l.kind === 'arc' ? 'name' : 'skip',
        });
      }
      const m = scene.markers || [];
      if (m.length) {
        data.push({
          type: 'scatter3d', mode: 'markers+text',
          x: m.map(p => p.x), y: m.map(p => p.y), z: m.map(p => p.z),
          text: m.map(p => p.label), textfont: {color: '#fff', size: 10},
          marker: {size: 3, color: '#ffcc00'}, hoverinfo: 'text',
        });
      }
      return data;
    }

    function layout(scene) {
      const axis = {visible: false, showgrid: false, zeroline: false};
      return {
        paper_bgcolor: scene.background, plot_bgcolor: scene.background,
        margin: {l: 0, r: 0, t: 0, b: 0}, showlegend: false, uirevision: 'globe',
        scene: {xaxis: axis, yaxis: axis, zaxis: axis, aspectmode: 'data', bgcolor: scene.background},
      };
    }

    function summary(scene) {
      if (!scene.target) return '';
      const km = (scene.legs || []).reduce((s, l) => s + l.distance_km, 0);
      let out = scene.target + ': ' + (scene.markers || []).length + ' located hops, ' + Math.round(km) + ' km';
      for (const s of scene.skipped || []) out += '\nhop ' + s.from_ttl + ' → ' + s.to_ttl + ' skipped: ' + s.reason;
      return out;
    }

    async function draw(target) {
      status.textContent = target ? 'tracing ' + target + '…' : '';
      const url = target ? '/v1/scene?target=' + encodeURIComponent(target) : '/v1/scene';
      const res = await fetch(url);
      const body = await res.json();
      if (!res.ok) {
        status.textContent = body.message || res.statusText;
        return;
      }
      Plotly.react('globe', traces(body), layout(body), {responsive: true});
      status.textContent = summary(body);
    }

    document.getElementById('trace').addEventListener('submit', e => {
      e.preventDefault();
      draw(document.getElementById('target').value.trim());
    });
    draw('');
  </script>
</body>
</html>`

// IndexHandler serves the interactive globe page.
func IndexHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
		return c.SendString(indexHTML)
	}
}
