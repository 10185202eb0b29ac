// Package mapper decodes translator response bodies into result sets
// and coerces their loosely typed values into Go types.
package mapper

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/querywire/querywire-go/protocol"
)

// ServerError is a failure the translator reported inside the response
// body. The HTTP exchange itself completed; the database work did not.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server reported an error: %s", e.Message)
}

// ResultSet is the decoded form of a result envelope. Rows arrive as
// positional arrays, one per database row, in server order.
type ResultSet struct {
	rows   [][]interface{}
	mapper *ResponseMapper
}

// Decode parses a response body into a ResultSet. A body carrying an
// error envelope decodes into a *ServerError; a body with no result key
// decodes into an empty set.
func Decode(body []byte) (*ResultSet, error) {
	var env protocol.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to decode response envelope: %w", err)
	}

	if env.Error != "" {
		return nil, &ServerError{Message: env.Error}
	}

	rs := &ResultSet{mapper: NewResponseMapper()}
	if len(env.Result) == 0 {
		return rs, nil
	}

	if err := json.Unmarshal(env.Result, &rs.rows); err != nil {
		return nil, fmt.Errorf("failed to decode result rows: %w", err)
	}
	return rs, nil
}

// Len returns the number of rows.
func (rs *ResultSet) Len() int {
	return len(rs.rows)
}

// Rows returns the underlying rows. The slice is shared with the
// ResultSet; callers must not modify it.
func (rs *ResultSet) Rows() [][]interface{} {
	return rs.rows
}

// Row returns the row at the given index.
func (rs *ResultSet) Row(i int) ([]interface{}, error) {
	if i < 0 || i >= len(rs.rows) {
		return nil, fmt.Errorf("row index %d out of range (%d rows)", i, len(rs.rows))
	}
	return rs.rows[i], nil
}

// Value returns the cell at the given row and column.
func (rs *ResultSet) Value(row, col int) (interface{}, error) {
	r, err := rs.Row(row)
	if err != nil {
		return nil, err
	}
	if col < 0 || col >= len(r) {
		return nil, fmt.Errorf("column index %d out of range (%d columns in row %d)", col, len(r), row)
	}
	return r[col], nil
}

// StringAt returns the cell at the given position coerced to a string.
func (rs *ResultSet) StringAt(row, col int) (string, error) {
	v, err := rs.Value(row, col)
	if err != nil {
		return "", err
	}
	return rs.mapper.ToString(v), nil
}

// IntAt returns the cell at the given position coerced to an int64.
func (rs *ResultSet) IntAt(row, col int) (int64, error) {
	v, err := rs.Value(row, col)
	if err != nil {
		return 0, err
	}
	return rs.mapper.ToInt(v)
}

// FloatAt returns the cell at the given position coerced to a float64.
func (rs *ResultSet) FloatAt(row, col int) (float64, error) {
	v, err := rs.Value(row, col)
	if err != nil {
		return 0, err
	}
	return rs.mapper.ToFloat(v)
}

// BoolAt returns the cell at the given position coerced to a bool.
func (rs *ResultSet) BoolAt(row, col int) (bool, error) {
	v, err := rs.Value(row, col)
	if err != nil {
		return false, err
	}
	return rs.mapper.ToBool(v)
}

// TimeAt returns the cell at the given position coerced to a time.Time.
func (rs *ResultSet) TimeAt(row, col int) (time.Time, error) {
	v, err := rs.Value(row, col)
	if err != nil {
		return time.Time{}, err
	}
	return rs.mapper.ToDateTime(v)
}

// StringColumn returns one column of every row coerced to strings.
// Introspection statements like SHOW DATABASES produce single-column
// rows that callers consume through this.
func (rs *ResultSet) StringColumn(col int) ([]string, error) {
	out := make([]string, 0, len(rs.rows))
	for i := range rs.rows {
		s, err := rs.StringAt(i, col)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// ResponseMapper handles type coercion for decoded response values.
type ResponseMapper struct{}

// NewResponseMapper creates a new response mapper.
func NewResponseMapper() *ResponseMapper {
	return &ResponseMapper{}
}

// MapResponse maps a raw response value to the expected type.
func (m *ResponseMapper) MapResponse(response interface{}, targetType string) (interface{}, error) {
	if response == nil {
		return nil, nil
	}

	switch targetType {
	case "string":
		return m.ToString(response), nil
	case "int":
		return m.ToInt(response)
	case "float":
		return m.ToFloat(response)
	case "boolean":
		return m.ToBool(response)
	case "datetime":
		return m.ToDateTime(response)
	case "object", "json":
		return response, nil
	default:
		return response, nil
	}
}

// ToString converts any value to a string.
func (m *ResponseMapper) ToString(value interface{}) string {
	if value == nil {
		return ""
	}

	switch v := value.(type) {
	case string:
		return v
	case int, int32, int64:
		return fmt.Sprintf("%d", v)
	case float64:
		// JSON numbers decode as float64; render integral values
		// without a fractional part so row cells read naturally.
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case bool:
		if v {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("%v", v)
	}
}

// ToInt converts a value to an integer.
func (m *ResponseMapper) ToInt(value interface{}) (int64, error) {
	if value == nil {
		return 0, fmt.Errorf("cannot convert nil to int")
	}

	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case float32:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case string:
		i, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot convert '%s' to int: %w", v, err)
		}
		return i, nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to int", value)
	}
}

// ToFloat converts a value to a float.
func (m *ResponseMapper) ToFloat(value interface{}) (float64, error) {
	if value == nil {
		return 0, fmt.Errorf("cannot convert nil to float")
	}

	switch v := value.(type) {
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot convert '%s' to float: %w", v, err)
		}
		return f, nil
	case bool:
		if v {
			return 1.0, nil
		}
		return 0.0, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to float", value)
	}
}

// ToBool converts a value to a boolean.
func (m *ResponseMapper) ToBool(value interface{}) (bool, error) {
	if value == nil {
		return false, nil
	}

	switch v := value.(type) {
	case bool:
		return v, nil
	case int:
		return v != 0, nil
	case int32:
		return v != 0, nil
	case int64:
		return v != 0, nil
	case float32:
		return v != 0, nil
	case float64:
		return v != 0, nil
	case string:
		// Handle common boolean strings, including the YES/NO the
		// information_schema uses for nullability.
		switch v {
		case "true", "1", "yes", "y", "on", "YES":
			return true, nil
		case "false", "0", "no", "n", "off", "NO", "":
			return false, nil
		default:
			return false, fmt.Errorf("cannot convert '%s' to boolean", v)
		}
	default:
		return false, fmt.Errorf("cannot convert %T to boolean", value)
	}
}

// ToDateTime converts a value to a time.Time.
func (m *ResponseMapper) ToDateTime(value interface{}) (time.Time, error) {
	if value == nil {
		return time.Time{}, fmt.Errorf("cannot convert nil to datetime")
	}

	switch v := value.(type) {
	case time.Time:
		return v, nil
	case string:
		// Try multiple datetime formats
		formats := []string{
			time.RFC3339,
			time.RFC3339Nano,
			"2006-01-02 15:04:05",
			"2006-01-02T15:04:05",
			"2006-01-02",
		}

		for _, format := range formats {
			if t, err := time.Parse(format, v); err == nil {
				return t, nil
			}
		}

		return time.Time{}, fmt.Errorf("cannot parse '%s' as datetime", v)
	case float64:
		// JSON numbers decode as float64; assume Unix timestamp
		return time.Unix(int64(v), 0), nil
	case int, int32, int64:
		var timestamp int64
		switch tv := v.(type) {
		case int:
			timestamp = int64(tv)
		case int32:
			timestamp = int64(tv)
		case int64:
			timestamp = tv
		}
		return time.Unix(timestamp, 0), nil
	default:
		return time.Time{}, fmt.Errorf("cannot convert %T to datetime", value)
	}
}

// MapArray maps an array of response values to the expected type.
func (m *ResponseMapper) MapArray(responses []interface{}, targetType string) ([]interface{}, error) {
	if responses == nil {
		return nil, nil
	}

	result := make([]interface{}, len(responses))
	for i, response := range responses {
		mapped, err := m.MapResponse(response, targetType)
		if err != nil {
			return nil, fmt.Errorf("error mapping array element %d: %w", i, err)
		}
		result[i] = mapped
	}

	return result, nil
}

// MapObject maps object fields to their expected types.
func (m *ResponseMapper) MapObject(obj map[string]interface{}, fieldTypes map[string]string) (map[string]interface{}, error) {
	if obj == nil {
		return nil, nil
	}

	result := make(map[string]interface{})

	for key, value := range obj {
		if targetType, hasType := fieldTypes[key]; hasType {
			mapped, err := m.MapResponse(value, targetType)
			if err != nil {
				return nil, fmt.Errorf("error mapping field '%s': %w", key, err)
			}
			result[key] = mapped
		} else {
			// No type specified, keep original value
			result[key] = value
		}
	}

	return result, nil
}
