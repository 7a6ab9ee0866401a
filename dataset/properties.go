package dataset

import (
	"encoding/json"
	"os"
	"sort"

	"github.com/gifteval/gifteval/pkg/errors"
)

// Domain classifies a dataset's application area. Values match the domain
// strings used in the properties file and in result rows.
type Domain string

// Known domains.
const (
	DomainClimate     Domain = "Climate"
	DomainCloudOps    Domain = "CloudOps"
	DomainEconFin     Domain = "Econ/Fin"
	DomainHealthcare  Domain = "Healthcare"
	DomainNature      Domain = "Nature"
	DomainSales       Domain = "Sales"
	DomainTransport   Domain = "Transport"
	DomainWeb         Domain = "Web"
	DomainWebCloudOps Domain = "Web/CloudOps"
)

// Domains lists all known domains.
var Domains = []Domain{
	DomainClimate,
	DomainCloudOps,
	DomainEconFin,
	DomainHealthcare,
	DomainNature,
	DomainSales,
	DomainTransport,
	DomainWeb,
	DomainWebCloudOps,
}

// Properties holds the per-dataset metadata merged into result rows.
type Properties struct {
	// Domain is the dataset's application area.
	Domain Domain `json:"domain"`

	// Frequency is the dataset's pandas-style frequency string. Used to
	// resolve the frequency token of dataset names that do not embed one.
	Frequency string `json:"frequency"`

	// NumVariates is the number of variates of the original dataset.
	NumVariates int `json:"num_variates"`
}

// PropertiesMap maps a normalized dataset key to its properties. Presence
// of a key also marks the dataset as part of the train_test split.
type PropertiesMap map[string]Properties

// LoadProperties reads a dataset properties JSON file.
//
// Parameters:
//   - path: path to dataset_properties.json
//
// Returns:
//   - PropertiesMap: parsed properties keyed by dataset key
//   - error: a DataError if the file cannot be read or parsed
func LoadProperties(path string) (PropertiesMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewDataError("LoadProperties", path, "cannot read properties file", err)
	}

	var m PropertiesMap
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.NewDataError("LoadProperties", path, "cannot parse properties file", err)
	}
	return m, nil
}

// Lookup returns the properties for a dataset name after key normalization.
func (m PropertiesMap) Lookup(name string) (Properties, bool) {
	p, ok := m[NormalizeKey(name)]
	return p, ok
}

// Has reports whether the properties file covers the dataset name,
// which places the dataset in the train_test split.
func (m PropertiesMap) Has(name string) bool {
	_, ok := m[NormalizeKey(name)]
	return ok
}

// Keys returns the dataset keys in sorted order.
func (m PropertiesMap) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
