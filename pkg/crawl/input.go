package crawl

import (
	"encoding/json"
	"io"

	"github.com/pkg/errors"
)

const (
	// DefaultSearch is used when a run is given nothing to start from.
	DefaultSearch = "Silver coin"
	// DefaultMaxItems caps a run that doesn't say how much it wants.
	DefaultMaxItems = 10
)

// StartURL accepts both a bare string and an object with a "url"
// field, so hand-written and exported input files both work.
type StartURL struct {
	URL string `json:"url"`
}

func (s *StartURL) UnmarshalJSON(data []byte) error {
	var plain string
	if err := json.Unmarshal(data, &plain); err == nil {
		s.URL = plain
		return nil
	}
	var obj struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return errors.Wrap(err, "start URL must be a string or an object with a url field")
	}
	s.URL = obj.URL
	return nil
}

// Input describes one scraping run.
type Input struct {
	StartURLs []StartURL `json:"startUrls"`
	Search    string     `json:"search"`
	MaxItems  int        `json:"maxItems"`
}

// ReadInput parses a run input and fills in the defaults: at most
// DefaultMaxItems items, and the DefaultSearch query when there is
// nothing else to go on.
func ReadInput(r io.Reader) (Input, error) {
	var input Input
	if err := json.NewDecoder(r).Decode(&input); err != nil && err != io.EOF {
		return Input{}, errors.Wrap(err, "parsing run input")
	}
	return withDefaults(input), nil
}

func withDefaults(input Input) Input {
	if input.MaxItems <= 0 {
		input.MaxItems = DefaultMaxItems
	}
	if len(input.StartURLs) == 0 && input.Search == "" {
		input.Search = DefaultSearch
	}
	return input
}
