package notifier

import (
	"bytes"
	"strings"
	"text/template"

	types "github.com/yungbote/streemm-backend/internal/domain"
)

// displayTitle resolves the fallback chain spec.md §4.5 names: title,
// then original filename, then a generic placeholder.
func displayTitle(v *types.Video) string {
	if t := strings.TrimSpace(v.Title); t != "" {
		return t
	}
	if f := strings.TrimSpace(v.OriginalFilename); f != "" {
		return f
	}
	return "your video"
}

type emailVars struct {
	Title string
	URL   string
}

var subjectTmpl = template.Must(template.New("subject").Parse(`Your video "{{.Title}}" is ready`))

var textTmpl = template.Must(template.New("text").Parse(
	`Good news — {{.Title}} has finished processing and is ready to watch.

Watch it here: {{.URL}}
`))

var htmlTmpl = template.Must(template.New("html").Parse(
	`<p>Good news — <strong>{{.Title}}</strong> has finished processing and is ready to watch.</p>
<p><a href="{{.URL}}">Watch it now</a></p>
`))

func render(v *types.Video, publicBaseURL string) (subject, text, html string, err error) {
	vars := emailVars{
		Title: displayTitle(v),
		URL:   strings.TrimRight(publicBaseURL, "/") + "/videos/" + v.ID.String(),
	}

	var subj, txt, htm bytes.Buffer
	if err = subjectTmpl.Execute(&subj, vars); err != nil {
		return "", "", "", err
	}
	if err = textTmpl.Execute(&txt, vars); err != nil {
		return "", "", "", err
	}
	if err = htmlTmpl.Execute(&htm, vars); err != nil {
		return "", "", "", err
	}
	return subj.String(), txt.String(), htm.String(), nil
}
