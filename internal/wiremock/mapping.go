package wiremock

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultMappingFile is the file name CreateMappingFile uses when none is given.
// Repeated calls without a name overwrite it.
const DefaultMappingFile = "mapping.json"

// MappingsDir is the directory, relative to the standalone path, the server loads stubs from
const MappingsDir = "mappings"

// StubMapping tells the mock server how to answer one request
type StubMapping struct {
	Request  RequestPattern     `json:"request"`
	Response ResponseDefinition `json:"response"`
}

// RequestPattern matches requests by method and exact URL
type RequestPattern struct {
	Method string `json:"method"`
	URL    string `json:"url"`
}

// ResponseDefinition is returned for matched requests.
// Headers and Body hold arbitrary JSON values and are written as given.
type ResponseDefinition struct {
	Body    any            `json:"body"`
	Headers map[string]any `json:"headers"`
	Status  int            `json:"status"`
}

// MarshalMapping encodes m with keys sorted at every level and four-space indentation
func MarshalMapping(m StubMapping) ([]byte, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}

	// Decoding into generic values turns every object into a map, which the
	// encoder writes with sorted keys.
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(generic); err != nil {
		return nil, err
	}

	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// MappingPath returns where a mapping file named fileName is written
func (c *Controller) MappingPath(fileName string) (string, error) {
	if fileName == "" {
		fileName = DefaultMappingFile
	}
	return filepath.Abs(filepath.Join(c.cfg.StandalonePath, MappingsDir, fileName))
}

// CreateMappingFile writes a stub mapping into the mappings directory under
// the standalone path, replacing any file of the same name, and returns its
// absolute path. An empty fileName means DefaultMappingFile. The mappings
// directory must already exist.
func (c *Controller) CreateMappingFile(method, url string, headers map[string]any, status int, body any, fileName string) (string, error) {
	data, err := MarshalMapping(StubMapping{
		Request: RequestPattern{Method: method, URL: url},
		Response: ResponseDefinition{
			Body:    body,
			Headers: headers,
			Status:  status,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal mapping: %w", err)
	}

	path, err := c.MappingPath(fileName)
	if err != nil {
		return "", fmt.Errorf("failed to resolve mapping path: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write mapping file: %w", err)
	}

	c.metrics.ObserveMappingWritten()
	c.logger.Info("mapping file created", "path", path)
	return path, nil
}
