package settings

import "time"

// Known setting keys.
const (
	KeyTestPricing = "testPricing"
)

// Setting is the item stored in the settings DynamoDB table.
type Setting struct {
	Key       string      `dynamodbav:"setting_key" json:"key"` // PK
	Value     interface{} `dynamodbav:"value" json:"value"`
	Version   int64       `dynamodbav:"version" json:"-"`
	UpdatedAt time.Time   `dynamodbav:"updated_at" json:"updated_at"`
}

// Truthy reports whether a stored value counts as "on". Absent values, nil, false, zero
// and the empty string are off; anything else is on.
func Truthy(v interface{}) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case float64:
		return x != 0
	case float32:
		return x != 0
	case int:
		return x != 0
	case int64:
		return x != 0
	case int32:
		return x != 0
	default:
		return true
	}
}
