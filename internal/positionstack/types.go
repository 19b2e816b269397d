package positionstack

type response struct {
	Data []location `json:"data"`
}

type location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Label     string  `json:"label"`
	Name      string  `json:"name"`
	Locality  string  `json:"locality"`
	Region    string  `json:"region"`
	Country   string  `json:"country"`
}
