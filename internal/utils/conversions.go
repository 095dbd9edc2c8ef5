package utils

// ToStringSlice converts a decoded JSON claim ([]any or []string) to []string,
// dropping non-string entries.
func ToStringSlice(v any) []string {
	stringSlice := make([]string, 0)
	switch slice := v.(type) {
	case []string:
		stringSlice = append(stringSlice, slice...)
	case []any:
		for _, item := range slice {
			if s, ok := item.(string); ok {
				stringSlice = append(stringSlice, s)
			}
		}
	case string:
		if slice != "" {
			stringSlice = append(stringSlice, slice)
		}
	}
	return stringSlice
}
