package render

const databoxTemplate = `
{{- define "databox" -}}
<div class="gdgt-wrapper{{ if .Mini }} mini{{ end }}" lang="en" dir="ltr"
{{- if .Feed }} style="{{ style "wrapper" }}"{{ else }} role="complementary tablist" aria-multiselectable="true"{{ end }}>
{{- range .Products }}{{ template "product" . }}{{ end -}}
</div>
{{- end -}}

{{- define "product" -}}
<div class="gdgt-product{{ if .Expanded }} gdgt-product-open{{ end }}" data-product="{{ .Slug }}"
{{- if .Feed }} style="{{ style "product" }}"{{ else }} role="tab" aria-expanded="{{ .Expanded }}"{{ end }}>
<h3 class="gdgt-product-name"{{ if .Feed }} style="{{ style "name" }}"{{ end }}>
{{- if .URL }}<a href="{{ .URL }}"{{ if .Feed }} style="{{ style "link" }}"{{ end }}>{{ .Name }}</a>{{ else }}{{ .Name }}{{ end }}
{{- with .Instances }} <span class="gdgt-instances">({{ . | replace "," ", " }})</span>{{ end -}}
</h3>
{{- if .Company }}
<p class="gdgt-company"{{ if .Feed }} style="{{ style "meta" }}"{{ end }}>by {{ if .CompanyURL }}<a href="{{ .CompanyURL }}">{{ .Company }}</a>{{ else }}{{ .Company }}{{ end }}</p>
{{- end }}
{{- if .Expanded }}
{{- if and .Image (not .Mini) }}
<img class="gdgt-product-image" src="{{ .Image }}" alt="{{ .Name }}"{{ if .Feed }} style="{{ style "image" }}"{{ end }}>
{{- end }}
{{- with .LowestPrice }}
<p class="gdgt-price"{{ if $.Feed }} style="{{ style "meta" }}"{{ end }}>Lowest price: {{ price . }}</p>
{{- end }}
{{- if .Tabs }}
<ul class="gdgt-tabs"{{ if .Feed }} style="{{ style "tabs" }}"{{ end }}>
{{- range .Tabs }}<li{{ if $.Feed }} style="{{ style "tab" }}"{{ end }}><a href="{{ $.URL }}{{ .Path }}">{{ .Label }}</a></li>{{ end -}}
</ul>
{{- end }}
{{- end }}
</div>
{{- end -}}
`

// feedStyles are inlined into feed markup; feed readers drop stylesheets.
var feedStyles = map[string]string{
	"wrapper": "margin:1em 0;padding:0;border:1px solid #d5d5d5;font-family:Helvetica,Arial,sans-serif;font-size:13px;line-height:1.4",
	"product": "margin:0;padding:8px 10px;border-bottom:1px solid #e5e5e5",
	"name":    "margin:0;font-size:15px;font-weight:bold",
	"link":    "color:#0f6fa6;text-decoration:none",
	"meta":    "margin:4px 0 0;color:#666",
	"image":   "float:right;max-width:120px;max-height:90px;margin:0 0 6px 10px;border:0",
	"tabs":    "margin:6px 0 0;padding:0;list-style:none;clear:both",
	"tab":     "display:inline;margin:0 10px 0 0",
}
