package format

// DerefString returns *s, or defaultVal when s is nil.
func DerefString(s *string, defaultVal string) string {
	if s != nil {
		return *s
	}
	return defaultVal
}
