package report

const textTmpl = `
{{- define "search" -}}
{{heading "=== Search Results ==="}}
Query:         {{.Query}}
Generated:     {{when .GeneratedAt}}
Summary:       {{.Summary}}
Total:         {{.TotalProducts}} products
Price range:   {{.PriceRange}}
{{- if .Products}}

{{heading "Products:"}}
{{- range $i, $p := .Products}}
{{inc $i}}. {{$p.Name}}
   Price:   {{if $p.Price}}{{$p.Price}}{{else}}n/a{{end}}
   Website: {{$p.Website}}
{{- if $p.URL}}
   URL:     {{$p.URL}}
{{- end}}
{{- if $p.Images}}
   Images:
{{- range $p.Images}}
     - {{.URL}}
{{- end}}
{{- end}}
{{- end}}
{{- end}}
{{- if .Sites}}

{{heading "Sites:"}}
{{- range .Sites}}
  {{.Website}}: {{if .Error}}{{bad "failed"}} ({{.Error}}){{else}}{{.Products}} products{{if .Dropped}}, {{.Dropped}} dropped{{end}}{{end}}
{{- end}}
{{- end}}
{{end}}

{{- define "intel" -}}
{{heading "=== Market Intelligence ==="}}
Category:      {{.ProductCategory}}
Last updated:  {{when .LastUpdated}}
Supply chain:  {{.SupplyChainStatus}}
Forecast:      {{.PriceForecast}}

{{heading "Trends:"}}
{{- range .Trends}}
  - {{.Title}} (confidence {{pct .Confidence}})
    {{.Description}}
{{- else}}
  None
{{- end}}

Key manufacturers: {{if .KeyManufacturers}}{{join .KeyManufacturers ", "}}{{else}}none listed{{end}}
{{end}}

{{- define "images" -}}
{{heading "=== Product Images ==="}}
Product:  {{.ProductName}}
Website:  {{.Website}}
{{- if .Images}}
{{- range $i, $img := .Images}}
{{inc $i}}. {{$img.URL}}
{{- end}}
{{- else}}
No images found
{{- end}}
{{end}}

{{- define "compliance" -}}
{{heading "=== Compliance Results ==="}}
Document:  {{.FileID}} ({{.DocumentType}})
{{- range .Results}}

Product:     {{.ProductName}}
Compliant:   {{if .Compliant}}{{good "Yes"}}{{else}}{{bad "No"}}{{end}}
Explanation: {{.Explanation}}
{{- end}}
{{end}}

{{- define "history" -}}
{{heading "=== Journal ==="}}
Records:   {{.Summary.TotalRecords}} ({{.Summary.TotalFailed}} failed)
{{- if .Summary.TotalRecords}}
Span:      {{when .Summary.StartTime}} - {{when .Summary.EndTime}}
Busy time: {{.Summary.TotalTime}}
By kind:
{{- range counts .Summary.ByKind}}
  {{.Key}}: {{.Count}}
{{- end}}

{{- range .Records}}
{{when .CreatedAt}}  {{printf "%-10s" .Kind}} {{printf "%-9s" .Status}} {{.Subject}}{{if .Error}}  {{bad .Error}}{{end}}
{{- end}}
{{- end}}
{{end}}
`

const htmlTmpl = `
{{- define "page" -}}
<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Procura Report</title>
<style>
  body { font-family: sans-serif; margin: 40px; color: #333; }
  h1 { border-bottom: 2px solid #ccc; padding-bottom: 10px; }
  .stat-card { display: inline-block; padding: 20px; margin: 10px 10px 10px 0; background: #f4f4f4; border-radius: 5px; min-width: 150px; }
  .stat-val { font-size: 24px; font-weight: bold; }
  table { border-collapse: collapse; margin-top: 10px; }
  th, td { padding: 8px 12px; border: 1px solid #ccc; text-align: left; vertical-align: top; }
  th { background: #eaeaea; }
  .ok { color: green; }
  .fail { color: red; }
</style>
</head>
<body>
{{- if eq .Body "search"}}{{template "search" .Data}}
{{- else if eq .Body "intel"}}{{template "intel" .Data}}
{{- else if eq .Body "images"}}{{template "images" .Data}}
{{- else if eq .Body "compliance"}}{{template "compliance" .Data}}
{{- else if eq .Body "history"}}{{template "history" .Data}}
{{- end}}
</body>
</html>
{{end}}

{{- define "search"}}
  <h1>Search Results: {{.Query}}</h1>
  <p>{{.Summary}}</p>
  <div class="stat-card">
    <div>Products</div>
    <div class="stat-val">{{.TotalProducts}}</div>
  </div>
  <div class="stat-card">
    <div>Price Range</div>
    <div class="stat-val">{{.PriceRange}}</div>
  </div>

  <h3>Products</h3>
  <table>
    <tr><th>Name</th><th>Price</th><th>Website</th><th>Images</th></tr>
    {{- range .Products}}
    <tr>
      <td>{{if .URL}}<a href="{{.URL}}">{{.Name}}</a>{{else}}{{.Name}}{{end}}</td>
      <td>{{.Price}}</td>
      <td>{{.Website}}</td>
      <td>{{range .Images}}<a href="{{.URL}}">{{.URL}}</a><br>{{end}}</td>
    </tr>
    {{- else}}
    <tr><td colspan="4">None</td></tr>
    {{- end}}
  </table>

  <h3>Sites</h3>
  <table>
    <tr><th>Website</th><th>Products</th><th>Dropped</th><th>Error</th></tr>
    {{- range .Sites}}
    <tr><td>{{.Website}}</td><td>{{.Products}}</td><td>{{.Dropped}}</td><td class="fail">{{.Error}}</td></tr>
    {{- end}}
  </table>
  <p><small>Generated {{when .GeneratedAt}}</small></p>
{{- end}}

{{- define "intel"}}
  <h1>Market Intelligence: {{.ProductCategory}}</h1>
  <div class="stat-card">
    <div>Supply Chain</div>
    <div>{{.SupplyChainStatus}}</div>
  </div>
  <div class="stat-card">
    <div>Price Forecast</div>
    <div>{{.PriceForecast}}</div>
  </div>

  <h3>Trends</h3>
  <table>
    <tr><th>Trend</th><th>Description</th><th>Confidence</th></tr>
    {{- range .Trends}}
    <tr><td>{{.Title}}</td><td>{{.Description}}</td><td>{{pct .Confidence}}</td></tr>
    {{- else}}
    <tr><td colspan="3">None</td></tr>
    {{- end}}
  </table>

  <h3>Key Manufacturers</h3>
  <p>{{if .KeyManufacturers}}{{join .KeyManufacturers ", "}}{{else}}None listed{{end}}</p>
  <p><small>Updated {{when .LastUpdated}}</small></p>
{{- end}}

{{- define "images"}}
  <h1>Images: {{.ProductName}}</h1>
  <p>{{.Website}}</p>
  {{- range .Images}}
  <p><a href="{{.URL}}"><img src="{{.URL}}" alt="" style="max-width: 240px"></a></p>
  {{- else}}
  <p>No images found</p>
  {{- end}}
{{- end}}

{{- define "compliance"}}
  <h1>Compliance Results</h1>
  <p><strong>Document:</strong> {{.FileID}} ({{.DocumentType}})</p>
  <table>
    <tr><th>Product</th><th>Compliant</th><th>Explanation</th></tr>
    {{- range .Results}}
    <tr>
      <td>{{.ProductName}}</td>
      <td class="{{if .Compliant}}ok{{else}}fail{{end}}">{{if .Compliant}}Yes{{else}}No{{end}}</td>
      <td>{{.Explanation}}</td>
    </tr>
    {{- end}}
  </table>
{{- end}}

{{- define "history"}}
  <h1>Journal</h1>
  <div class="stat-card">
    <div>Records</div>
    <div class="stat-val">{{.Summary.TotalRecords}}</div>
  </div>
  <div class="stat-card">
    <div>Failed</div>
    <div class="stat-val" style="color: {{if gt .Summary.TotalFailed 0}}red{{else}}green{{end}};">{{.Summary.TotalFailed}}</div>
  </div>

  <table>
    <tr><th>Time</th><th>Kind</th><th>Status</th><th>Subject</th><th>Error</th></tr>
    {{- range .Records}}
    <tr><td>{{when .CreatedAt}}</td><td>{{.Kind}}</td><td>{{.Status}}</td><td>{{.Subject}}</td><td class="fail">{{.Error}}</td></tr>
    {{- else}}
    <tr><td colspan="5">None</td></tr>
    {{- end}}
  </table>
{{- end}}
`
