package transport

import (
	"fmt"
	"net/url"
	"reflect"
	"slices"
	"sort"
	"strings"

	gschema "github.com/gorilla/schema"

	"github.com/dealerdesk/dealerdesk.go/pkg/constants"
)

var queryEncoder = gschema.NewEncoder()

// BuildURL joins the base URL, the API pattern and path, ending the path with exactly one slash,
// then appends the encoded query.
//
// query may be nil, url.Values, map[string]string, map[string]any, or a struct with schema tags.
func (c *Transport) BuildURL(path string, query any) (string, error) {
	if c.baseURL == "" {
		return "", configError(constants.ErrNoBaseURL)
	}
	if c.pattern == "" {
		return "", configError(constants.ErrNoAPIPattern)
	}

	var b strings.Builder
	b.WriteString(strings.TrimRight(c.baseURL, "/"))
	b.WriteByte('/')
	b.WriteString(strings.Trim(c.pattern, "/"))
	b.WriteByte('/')
	if trimmed := strings.Trim(path, "/"); trimmed != "" {
		b.WriteString(trimmed)
		b.WriteByte('/')
	}

	values, err := EncodeQuery(query)
	if err != nil {
		return "", err
	}
	if encoded := values.Encode(); encoded != "" {
		b.WriteByte('?')
		b.WriteString(encoded)
	}
	return b.String(), nil
}

// EncodeQuery converts the supported query forms to url.Values. The result never shares storage
// with query.
func EncodeQuery(query any) (url.Values, error) {
	switch q := query.(type) {
	case nil:
		return url.Values{}, nil
	case url.Values:
		return cloneValues(q), nil
	case map[string][]string:
		return cloneValues(q), nil
	case map[string]string:
		values := url.Values{}
		for k, v := range q {
			values.Set(k, v)
		}
		return values, nil
	case map[string]any:
		values := url.Values{}
		keys := make([]string, 0, len(q))
		for k := range q {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if q[k] == nil {
				continue
			}
			values.Set(k, fmt.Sprint(q[k]))
		}
		return values, nil
	}

	v := reflect.ValueOf(query)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil, configError(fmt.Errorf("unsupported query type %T", query))
	}
	values := url.Values{}
	if err := queryEncoder.Encode(v.Interface(), values); err != nil {
		return nil, configError(fmt.Errorf("encode query: %w", err))
	}
	return values, nil
}

func cloneValues(q map[string][]string) url.Values {
	out := make(url.Values, len(q))
	for k, v := range q {
		out[k] = slices.Clone(v)
	}
	return out
}
