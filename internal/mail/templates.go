package mail

import (
	"bytes"
	htmltpl "html/template"
	texttpl "text/template"
)

const quoteHTML = `<h2>Nouvelle demande de devis</h2>
<p><strong>Nom :</strong> {{.Nom}}<br>
<strong>E-mail :</strong> {{.Email}}<br>
<strong>Téléphone :</strong> {{.Telephone}}{{if .Company}}<br>
<strong>Société :</strong> {{.Company}}{{end}}</p>
{{if .ProductRef}}<p><strong>Produit :</strong> {{.ProductName}} ({{.ProductRef}})</p>{{end}}
{{if .Items}}<table border="1" cellpadding="4">
<tr><th>Réf.</th><th>Produit</th><th>Couleur</th><th>Taille</th><th>Qté</th><th>Marquage</th></tr>
{{range .Items}}<tr><td>{{.SKU}}</td><td>{{.Name}}</td><td>{{.Color}}</td><td>{{.Size}}</td><td>{{.Quantity}}</td><td>{{.MarkingType}} {{.MarkingLocation}} {{.MarkingNotes}}</td></tr>
{{end}}</table>{{end}}
<p>{{.Message}}</p>
{{if .Page}}<p><small>Envoyé depuis {{.Page}}</small></p>{{end}}`

const quoteText = `Nouvelle demande de devis
Nom : {{.Nom}}
E-mail : {{.Email}}
Téléphone : {{.Telephone}}
{{if .Company}}Société : {{.Company}}
{{end}}{{if .ProductRef}}Produit : {{.ProductName}} ({{.ProductRef}})
{{end}}{{range .Items}}- {{.Quantity}} x {{.SKU}} {{.Name}} {{.Color}} {{.Size}}{{if .MarkingType}} [{{.MarkingType}}]{{end}}
{{end}}
{{.Message}}
`

const ackHTML = `<p>Bonjour {{.Nom}},</p>
<p>Merci pour votre demande. Notre équipe revient vers vous sous 24 heures ouvrées avec une proposition chiffrée.</p>
<p>L'équipe TextilePro</p>`

const ackText = `Bonjour {{.Nom}},

Merci pour votre demande. Notre équipe revient vers vous sous 24 heures ouvrées avec une proposition chiffrée.

L'équipe TextilePro
`

var (
	quoteHTMLTpl = htmltpl.Must(htmltpl.New("quote").Parse(quoteHTML))
	quoteTextTpl = texttpl.Must(texttpl.New("quote").Parse(quoteText))
	ackHTMLTpl   = htmltpl.Must(htmltpl.New("ack").Parse(ackHTML))
	ackTextTpl   = texttpl.Must(texttpl.New("ack").Parse(ackText))
)

func renderQuote(q QuoteRequest) (string, string, error) {
	return render(q, quoteHTMLTpl, quoteTextTpl)
}

func renderAck(q QuoteRequest) (string, string, error) {
	return render(q, ackHTMLTpl, ackTextTpl)
}

func render(q QuoteRequest, h *htmltpl.Template, t *texttpl.Template) (string, string, error) {
	var hb, tb bytes.Buffer
	if err := h.Execute(&hb, q); err != nil {
		return "", "", err
	}
	if err := t.Execute(&tb, q); err != nil {
		return "", "", err
	}
	return hb.String(), tb.String(), nil
}
