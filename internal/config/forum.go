package config

// ForumConfig holds forum-specific configuration for a single forum
// profile. Profiles let one installation read several forums with
// different origins, URL layouts, and charsets.
type ForumConfig struct {
	// Origin is the forum origin, scheme and host, without a trailing
	// slash (e.g. "https://bbs.example.com").
	Origin string `yaml:"origin,omitempty"`

	// PathTemplate overrides the thread page URL layout for this forum.
	// It must contain a %s verb for the thread id followed by a %d verb
	// for the page number.
	PathTemplate string `yaml:"pathTemplate,omitempty"`

	// Charset forces a document character set for this forum (e.g. "gbk").
	// Empty means autodetect from the response.
	Charset string `yaml:"charset,omitempty"`

	// UserAgent overrides the User-Agent header for this forum.
	UserAgent string `yaml:"userAgent,omitempty"`

	// Cookie is an HTTP cookie header value to send with every request.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers to include in requests to this
	// forum.
	Headers map[string]string `yaml:"headers,omitempty"`
}

// File represents the structure of the threadsnap configuration file.
type File struct {
	// Default names the forum profile used when no --forum flag is given.
	Default string `yaml:"default,omitempty"`

	// Forums maps profile names to their forum-specific configurations.
	Forums map[string]ForumConfig `yaml:"forums,omitempty"`

	// Defaults contains configuration applied to all forums unless
	// overridden in the forum-specific profile.
	Defaults ForumConfig `yaml:"defaults,omitempty"`
}

// GetForumConfig returns the configuration for a named forum profile.
// It merges the profile with the file-level defaults. An unknown name
// returns just the defaults.
func (cf *File) GetForumConfig(name string) ForumConfig {
	// Start with defaults
	result := cf.Defaults

	// Override with forum-specific configuration if present
	if fc, ok := cf.Forums[name]; ok {
		if fc.Origin != "" {
			result.Origin = fc.Origin
		}
		if fc.PathTemplate != "" {
			result.PathTemplate = fc.PathTemplate
		}
		if fc.Charset != "" {
			result.Charset = fc.Charset
		}
		if fc.UserAgent != "" {
			result.UserAgent = fc.UserAgent
		}
		if fc.Cookie != "" {
			result.Cookie = fc.Cookie
		}
		if len(fc.Headers) > 0 {
			// Merge into a fresh map: result.Headers still aliases the
			// defaults map after the struct copy above.
			merged := make(map[string]string, len(result.Headers)+len(fc.Headers))
			for k, v := range result.Headers {
				merged[k] = v
			}
			for k, v := range fc.Headers {
				merged[k] = v
			}
			result.Headers = merged
		}
	}

	return result
}
