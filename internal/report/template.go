package report

// reportTemplate is the self-contained report document. Styling mirrors the
// viewer's palette so exported reports look like the app that produced them.
const reportTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            line-height: 1.6;
            color: #333;
            max-width: 1200px;
            margin: 0 auto;
            padding: 20px;
            background: #f5f5f5;
        }
        header {
            background: linear-gradient(135deg, #667eea 0%, #764ba2 100%);
            color: white;
            padding: 30px;
            border-radius: 10px;
            margin-bottom: 30px;
        }
        h1 { font-size: 2rem; margin-bottom: 10px; }
        .timestamp { opacity: 0.8; font-size: 0.9rem; }
        h2 {
            color: #667eea;
            border-bottom: 2px solid #667eea;
            padding-bottom: 10px;
            margin: 30px 0 20px;
        }
        .extraction-table {
            width: 100%;
            border-collapse: collapse;
            background: white;
            border-radius: 8px;
            overflow: hidden;
            box-shadow: 0 2px 10px rgba(0,0,0,0.1);
        }
        .extraction-table th, .extraction-table td {
            padding: 12px 15px;
            text-align: left;
            border-bottom: 1px solid #eee;
        }
        .extraction-table th {
            background: #667eea;
            color: white;
        }
        .source-cell {
            font-size: 0.85rem;
            color: #666;
            font-style: italic;
            max-width: 300px;
        }
        .evidence-section {
            display: grid;
            grid-template-columns: repeat(auto-fill, minmax(350px, 1fr));
            gap: 20px;
            margin-top: 20px;
        }
        .evidence-card {
            background: white;
            border-radius: 8px;
            padding: 20px;
            box-shadow: 0 2px 10px rgba(0,0,0,0.1);
        }
        .evidence-card h3 {
            color: #667eea;
            margin-bottom: 10px;
        }
        .evidence-card img {
            max-width: 100%;
            border: 1px solid #ddd;
            border-radius: 4px;
            margin-top: 10px;
        }
        .source-text {
            background: #fff9c4;
            padding: 10px;
            border-radius: 4px;
            font-style: italic;
            margin-bottom: 5px;
        }
        .page-ref {
            color: #888;
            font-size: 0.85rem;
        }
        footer {
            text-align: center;
            padding: 20px;
            color: #888;
            font-size: 0.85rem;
        }
    </style>
</head>
<body>
    <header>
        <h1>{{.Title}}</h1>
        <p class="timestamp">Generated: {{.Timestamp}}</p>
    </header>

    <section>
        <h2>Extracted Data</h2>
        <table class="extraction-table">
            <thead>
                <tr>
                    <th>Field</th>
                    <th>Value</th>
                    <th>Source Text</th>
                </tr>
            </thead>
            <tbody>
{{- range .Rows}}
                <tr>
                    <td><strong>{{.Name}}</strong></td>
{{- if .Scalar}}
                    <td colspan="2">{{.Value}}</td>
{{- else}}
                    <td>{{.Value}}</td>
                    <td class="source-cell">{{.Source}}</td>
{{- end}}
                </tr>
{{- end}}
            </tbody>
        </table>
    </section>

    <section>
        <h2>Visual Evidence ({{.Count}} screenshots)</h2>
        <div class="evidence-section">
{{- range .Cards}}
            <div class="evidence-card">
                <h3>{{.Label}}</h3>
                <p class="source-text">"{{.Text}}"</p>
                <p class="page-ref">Page {{.Page}}</p>
                <img src="{{.Src}}" alt="{{.Label}}" />
            </div>
{{- end}}
        </div>
    </section>

    <footer>
        <p>Cerebellar SDC Extraction System | Report generated automatically</p>
    </footer>
</body>
</html>
`
