package client

import "fmt"

// Endpoint names one processing operation on the server.
type Endpoint string

const (
	Merge    Endpoint = "merge"
	Split    Endpoint = "split"
	Compress Endpoint = "compress"
	Convert  Endpoint = "convert"
	Unlock   Endpoint = "unlock"
	PDFInfo  Endpoint = "pdf-info"
)

// Endpoints lists every processing endpoint.
var Endpoints = []Endpoint{Merge, Split, Compress, Convert, Unlock, PDFInfo}

// Path is the URL path the endpoint is served on.
func (e Endpoint) Path() string { return "/api/" + string(e) }

func (e Endpoint) Valid() bool {
	for _, known := range Endpoints {
		if e == known {
			return true
		}
	}
	return false
}

// ParseEndpoint maps an operation name onto an Endpoint.
func ParseEndpoint(name string) (Endpoint, error) {
	e := Endpoint(name)
	if !e.Valid() {
		return "", fmt.Errorf("unknown endpoint %q", name)
	}
	return e, nil
}
