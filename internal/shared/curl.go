// Utilities for parsing cURL commands copied from browser DevTools.
//
// Catalog tokens are easiest to obtain by copying any authenticated request
// as cURL from the web client; these helpers extract the token and headers
// from that paste.
package shared

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
)

// CurlHeaders represents parsed headers, cookies, and URL from a cURL command.
type CurlHeaders struct {
	URL     string
	Headers map[string]string
	Cookie  string
}

// ParseCurlFile reads a .sh file containing a cURL command and extracts headers.
func ParseCurlFile(filepath string) (*CurlHeaders, error) {
	content, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read curl file: %w", err)
	}

	return ParseCurlCommand(content)
}

// ParseCurlCommand parses a cURL command string and extracts the request URL and headers.
func ParseCurlCommand(data []byte) (*CurlHeaders, error) {
	curlCmd := string(data)
	curlCmd = strings.ReplaceAll(curlCmd, "\\\n", " ")
	curlCmd = strings.ReplaceAll(curlCmd, "\\", "")

	headers := make(map[string]string)
	var cookie string

	// Browsers place the URL before or after the header flags, so take the
	// first quoted http(s) argument anywhere in the command, then fall back
	// to a bare URL.
	urlRegex := regexp.MustCompile(`'(https?://[^']+)'|"(https?://[^"]+)"`)
	var reqURL string
	if m := urlRegex.FindStringSubmatch(curlCmd); len(m) > 1 {
		if m[1] != "" {
			reqURL = m[1]
		} else {
			reqURL = m[2]
		}
	}
	if reqURL == "" {
		reqURL = regexp.MustCompile(`\bhttps?://[^\s'"]+`).FindString(curlCmd)
	}

	headerRegex := regexp.MustCompile(`-H\s+'([^']+)'|-H\s+"([^"]+)"`)
	matches := headerRegex.FindAllStringSubmatch(curlCmd, -1)

	for _, match := range matches {
		var headerLine string
		if match[1] != "" {
			headerLine = match[1]
		} else {
			headerLine = match[2]
		}

		parts := strings.SplitN(headerLine, ":", 2)
		if len(parts) == 2 {
			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])

			if strings.ToLower(key) == "cookie" {
				cookie = value
			} else {
				headers[key] = value
			}
		}
	}

	cookieRegex := regexp.MustCompile(`-b\s+'([^']+)'|-b\s+"([^"]+)"`)
	if cookieMatches := cookieRegex.FindStringSubmatch(curlCmd); len(cookieMatches) > 1 {
		if cookieMatches[1] != "" {
			cookie = cookieMatches[1]
		} else {
			cookie = cookieMatches[2]
		}
	}

	if reqURL == "" && len(headers) == 0 && cookie == "" {
		return nil, fmt.Errorf("no URL or headers found in curl command")
	}

	return &CurlHeaders{
		URL:     reqURL,
		Headers: headers,
		Cookie:  cookie,
	}, nil
}

// Token extracts the catalog auth token from the parsed command.
//
// Checks the X-Plex-Token header first, then the token query parameter of
// the request URL. Returns the empty string when neither is present.
func (c *CurlHeaders) Token() string {
	for key, value := range c.Headers {
		if strings.EqualFold(key, "X-Plex-Token") {
			return value
		}
	}

	if c.URL != "" {
		if u, err := url.Parse(c.URL); err == nil {
			if token := u.Query().Get("X-Plex-Token"); token != "" {
				return token
			}
		}
	}

	return ""
}

// ServerURL extracts the catalog base URL (scheme://host:port) from the
// parsed command, or the empty string when the URL could not be parsed.
func (c *CurlHeaders) ServerURL() string {
	if c.URL == "" {
		return ""
	}

	u, err := url.Parse(c.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}

	return fmt.Sprintf("%s://%s", u.Scheme, u.Host)
}
