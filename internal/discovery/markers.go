package discovery

// LatLng is a geographic coordinate pair as consumed by the map widget.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Marker is the descriptor the map widget renders for one listing. Selection
// events stay entirely on the widget's side; this package only produces the
// descriptors.
type Marker struct {
	ID       string `json:"id"`
	Position LatLng `json:"position"`
	Label    string `json:"label"`
	Category string `json:"category"`
}

// BuildMarkers converts filtered candidates into map marker descriptors,
// skipping candidates without coordinates.
func BuildMarkers(items []Candidate) []Marker {
	out := make([]Marker, 0, len(items))
	for _, it := range items {
		if it.Lat == 0 && it.Lng == 0 {
			continue
		}
		label := it.Name
		if label == "" {
			label = it.Title
		}
		out = append(out, Marker{
			ID:       it.ID,
			Position: LatLng{Lat: it.Lat, Lng: it.Lng},
			Label:    label,
			Category: it.Category,
		})
	}
	return out
}
