package httpserver

const indexHTML = `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>octosync</title>
<style>
body { font-family: system-ui, sans-serif; margin: 2rem; }
table { border-collapse: collapse; }
td, th { padding: .25rem .75rem; border-bottom: 1px solid #ddd; text-align: left; }
</style>
</head>
<body>
<h1>Cached consumption</h1>
<p>
<label>Energy type
<select id="type"><option>electricity</option><option>gas</option></select>
</label>
<button id="load">Load last day</button>
</p>
<table>
<thead><tr><th>Interval start</th><th>Interval end</th><th>Consumption</th></tr></thead>
<tbody id="rows"></tbody>
</table>
<script>
document.getElementById("load").onclick = async () => {
  const type = document.getElementById("type").value;
  const latest = await fetch("/api/readings/latest?type=" + type);
  const rows = document.getElementById("rows");
  rows.innerHTML = "";
  if (!latest.ok) { rows.innerHTML = "<tr><td colspan=3>no readings</td></tr>"; return; }
  const end = new Date((await latest.json()).intervalEnd);
  const start = new Date(end.getTime() - 24 * 3600 * 1000);
  const res = await fetch("/api/readings?type=" + type + "&start=" + start.toISOString() + "&end=" + end.toISOString());
  for (const r of (await res.json()).readings) {
    const tr = document.createElement("tr");
    tr.innerHTML = "<td>" + r.intervalStart + "</td><td>" + r.intervalEnd + "</td><td>" + r.consumption + "</td>";
    rows.appendChild(tr);
  }
};
</script>
</body>
</html>
`
