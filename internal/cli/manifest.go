package cli

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Manifest — описание роботов приложения (robots.yaml).
type Manifest struct {
	// HandlerBase — публичный адрес robots-api, к нему добавляется Path робота.
	HandlerBase string `yaml:"handler_base"`

	// AuthUserID — пользователь, от имени которого портал вызывает роботов.
	AuthUserID int `yaml:"auth_user_id"`

	Robots []RobotSpec `yaml:"robots"`
}

// RobotSpec — один робот манифеста.
type RobotSpec struct {
	Code             string                  `yaml:"code"`
	Name             string                  `yaml:"name"`
	Path             string                  `yaml:"path"`
	Properties       map[string]PropertySpec `yaml:"properties"`
	ReturnProperties map[string]PropertySpec `yaml:"return_properties"`
}

// PropertySpec — входной или возвращаемый параметр робота.
type PropertySpec struct {
	Name     string            `yaml:"name"`
	Type     string            `yaml:"type"`
	Required bool              `yaml:"required"`
	Multiple bool              `yaml:"multiple"`
	Default  any               `yaml:"default"`
	Options  map[string]string `yaml:"options"`
}

// propertyTypes — типы параметров, которые принимает портал.
var propertyTypes = map[string]bool{
	"bool": true, "date": true, "datetime": true, "double": true, "int": true,
	"select": true, "string": true, "text": true, "user": true, "file": true,
}

// LoadManifest читает и проверяет манифест из файла.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return ParseManifest(data)
}

// ParseManifest разбирает и проверяет манифест.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if m.AuthUserID == 0 {
		m.AuthUserID = 1
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate проверяет манифест и возвращает все найденные ошибки.
func (m *Manifest) Validate() error {
	var errs []error

	u, err := url.Parse(m.HandlerBase)
	if m.HandlerBase == "" || err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("handler_base: absolute url required"))
	}
	if len(m.Robots) == 0 {
		errs = append(errs, fmt.Errorf("robots: at least one robot required"))
	}

	seen := make(map[string]bool)
	for i, r := range m.Robots {
		prefix := fmt.Sprintf("robots[%d]", i)
		if r.Code == "" {
			errs = append(errs, fmt.Errorf("%s.code: required", prefix))
		} else if seen[r.Code] {
			errs = append(errs, fmt.Errorf("%s.code: duplicate %q", prefix, r.Code))
		}
		seen[r.Code] = true

		if r.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name: required", prefix))
		}
		if !strings.HasPrefix(r.Path, "/") {
			errs = append(errs, fmt.Errorf("%s.path: must start with /", prefix))
		}
		errs = append(errs, validateProperties(prefix+".properties", r.Properties)...)
		errs = append(errs, validateProperties(prefix+".return_properties", r.ReturnProperties)...)
	}

	return errors.Join(errs...)
}

func validateProperties(prefix string, props map[string]PropertySpec) []error {
	var errs []error
	for key, p := range props {
		if !propertyTypes[p.Type] {
			errs = append(errs, fmt.Errorf("%s.%s.type: unknown type %q", prefix, key, p.Type))
		}
		if p.Type == "select" && len(p.Options) == 0 {
			errs = append(errs, fmt.Errorf("%s.%s.options: required for select", prefix, key))
		}
	}
	return errs
}

// Robot возвращает робота по коду.
func (m *Manifest) Robot(code string) (RobotSpec, bool) {
	for _, r := range m.Robots {
		if r.Code == code {
			return r, true
		}
	}
	return RobotSpec{}, false
}

// Handler возвращает полный адрес обработчика робота.
func (m *Manifest) Handler(r RobotSpec) string {
	return strings.TrimRight(m.HandlerBase, "/") + r.Path
}

// AddParams формирует параметры bizproc.robot.add.
func (m *Manifest) AddParams(r RobotSpec) map[string]any {
	params := map[string]any{
		"CODE":         r.Code,
		"HANDLER":      m.Handler(r),
		"AUTH_USER_ID": m.AuthUserID,
		"NAME":         r.Name,
	}
	if len(r.Properties) > 0 {
		params["PROPERTIES"] = propertyParams(r.Properties)
	}
	if len(r.ReturnProperties) > 0 {
		params["RETURN_PROPERTIES"] = propertyParams(r.ReturnProperties)
	}
	return params
}

func propertyParams(props map[string]PropertySpec) map[string]any {
	out := make(map[string]any, len(props))
	for key, p := range props {
		v := map[string]any{
			"Name":     p.Name,
			"Type":     p.Type,
			"Required": yn(p.Required),
			"Multiple": yn(p.Multiple),
		}
		if p.Default != nil {
			v["Default"] = p.Default
		}
		if len(p.Options) > 0 {
			v["Options"] = p.Options
		}
		out[key] = v
	}
	return out
}

func yn(b bool) string {
	if b {
		return "Y"
	}
	return "N"
}
