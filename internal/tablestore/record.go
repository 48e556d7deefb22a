package tablestore

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/samcharles93/db2kit/pkg/wdc2"
)

// Record is one decoded row. It encodes as a JSON object with "id" first
// and the fields in spec order.
type Record struct {
	ID     int32
	Fields []wdc2.FieldValue
}

// FieldName is the JSON key used for a field.
func FieldName(spec wdc2.FieldSpec) string {
	if spec.Name != "" {
		return spec.Name
	}
	return fmt.Sprintf("field_%d", spec.Index)
}

func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, `{"id":%d`, r.ID)
	for _, fv := range r.Fields {
		key, err := json.Marshal(FieldName(fv.FieldSpec))
		if err != nil {
			return nil, err
		}
		var val []byte
		if fv.IsArray() {
			val, err = json.Marshal(fv.Values)
		} else {
			val, err = json.Marshal(fv.Value)
		}
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
