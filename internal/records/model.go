// Package records turns uploaded spreadsheets into ordered record sets.
package records

// Record is one data row: field name to value, keeping header order.
type Record struct {
	Keys   []string          `json:"keys"`
	Values map[string]string `json:"values"`
}

// NewRecord builds a record from alternating key, value pairs.
func NewRecord(kv ...string) Record {
	r := Record{Values: map[string]string{}}
	for i := 0; i+1 < len(kv); i += 2 {
		r.Set(kv[i], kv[i+1])
	}
	return r
}

// Set stores v under k. A repeated key keeps its first position and the
// last value.
func (r *Record) Set(k, v string) {
	if r.Values == nil {
		r.Values = map[string]string{}
	}
	if _, ok := r.Values[k]; !ok {
		r.Keys = append(r.Keys, k)
	}
	r.Values[k] = v
}

func (r Record) Get(k string) (string, bool) {
	v, ok := r.Values[k]
	return v, ok
}

// RecordSet is the parsed content of one data file.
type RecordSet struct {
	Name    string   `json:"file_name"`
	Header  []string `json:"fields"`
	Records []Record `json:"-"`
}

func (rs RecordSet) Len() int { return len(rs.Records) }
