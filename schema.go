package bridge

// TranslateSchema normalizes a remote tool's JSON-Schema-like input schema
// into the structured-parameter form the agent framework presents to the
// model. Properties keep their declared types untouched; schema vocabulary
// this layer does not interpret is copied through opaquely so newer servers
// keep working. A property is optional unless named in the schema's required
// list.
//
// A schema that is not a JSON object, or whose required list names an
// undeclared property, is rejected with an initialization error; the caller
// is expected to exclude the offending tool rather than abort the wiring.
func TranslateSchema(schema map[string]any) (map[string]any, error) {
	if schemaType, ok := schema["type"]; ok {
		typeName, isString := schemaType.(string)
		if !isString || typeName != "object" {
			return nil, Errorf(KindInit, "input schema type %v is not an object", schemaType)
		}
	}

	properties := map[string]any{}
	if raw, ok := schema["properties"]; ok {
		declared, isMap := raw.(map[string]any)
		if !isMap {
			return nil, Errorf(KindInit, "input schema properties are not an object")
		}
		for name, prop := range declared {
			properties[name] = prop
		}
	}

	required, err := requiredNames(schema)
	if err != nil {
		return nil, err
	}
	for _, name := range required {
		if _, declared := properties[name]; !declared {
			return nil, Errorf(KindInit, "required property %q is not declared", name)
		}
	}

	out := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		out["required"] = required
	}
	// Preserve vocabulary we do not interpret (definitions, additionalProperties, ...).
	for key, value := range schema {
		switch key {
		case "type", "properties", "required":
			continue
		}
		out[key] = value
	}
	return out, nil
}

// requiredNames accepts the two spellings the wire produces: a decoded JSON
// array ([]any of strings) or a typed []string.
func requiredNames(schema map[string]any) ([]string, error) {
	raw, ok := schema["required"]
	if !ok || raw == nil {
		return nil, nil
	}
	switch list := raw.(type) {
	case []string:
		return list, nil
	case []any:
		names := make([]string, 0, len(list))
		for _, item := range list {
			name, isString := item.(string)
			if !isString {
				return nil, Errorf(KindInit, "required list contains a non-string entry %v", item)
			}
			names = append(names, name)
		}
		return names, nil
	default:
		return nil, Errorf(KindInit, "required is not a list")
	}
}

// IsRequired reports whether a translated schema marks the named property as
// required.
func IsRequired(schema map[string]any, property string) bool {
	names, err := requiredNames(schema)
	if err != nil {
		return false
	}
	for _, name := range names {
		if name == property {
			return true
		}
	}
	return false
}
