package mapview

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"

	"github.com/Copubah/dirty-nairobi/internal/domain"
)

// PopupContent is the detached popup fragment for one marker.
type PopupContent struct {
	ReportID  string `json:"report_id"`
	HTML      string `json:"html"`
	MaxWidth  int    `json:"max_width"`
	ClassName string `json:"class_name"`
}

const (
	popupMaxWidth  = 300
	popupClassName = "custom-popup"
	popupDate      = "1/2/2006"
)

var popupTemplate = template.Must(template.New("popup").Parse(`<div class="photo-popup">
{{- if .ImageBroken}}
  <div class="popup-image popup-image-placeholder" role="img" aria-label="{{.Description}}"></div>
{{- else}}
  <img src="{{.ImageURL}}" alt="{{.Description}}" class="popup-image" onerror="this.style.display='none'"/>
{{- end}}
  <div class="popup-content">
    <p class="popup-description">{{.Description}}</p>
    <div class="popup-meta">
      <small class="popup-date">{{.Date}}</small>
      <small class="popup-coords">{{.Coords}}</small>
    </div>
    <button class="popup-view-btn" data-report-id="{{.ID}}" data-action="{{.Action}}">View Details</button>
  </div>
</div>`))

type popupData struct {
	ID          string
	Description string
	ImageURL    string
	ImageBroken bool
	Date        string
	Coords      string
	Action      string
}

// RenderPopup builds the popup for r. Every report field is escaped. When the
// thumbnail is known to be broken a placeholder replaces the image; otherwise
// the image hides itself if it fails to load in the client.
func RenderPopup(r domain.Report, imageBroken bool) (PopupContent, error) {
	data := popupData{
		ID:          r.ID,
		Description: r.Description,
		ImageURL:    r.ImageURL,
		ImageBroken: imageBroken || r.ImageURL == "",
		Coords:      fmt.Sprintf("%.4f, %.4f", r.Latitude, r.Longitude),
		Action:      "/map/popups/" + url.PathEscape(r.ID) + "/view",
	}
	if !r.CreatedAt.IsZero() {
		data.Date = r.CreatedAt.Format(popupDate)
	}

	var buf bytes.Buffer
	if err := popupTemplate.Execute(&buf, data); err != nil {
		return PopupContent{}, fmt.Errorf("render popup %q: %w", r.ID, err)
	}
	return PopupContent{
		ReportID:  r.ID,
		HTML:      buf.String(),
		MaxWidth:  popupMaxWidth,
		ClassName: popupClassName,
	}, nil
}
