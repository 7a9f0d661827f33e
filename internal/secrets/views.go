package secrets

import "strconv"

// Views holds the three output representations of a mapping, in ascending version order.
type Views struct {
	Secrets []Secret
	Bytes   []SecretBytes
	Dict    SecretDict
}

// BuildViews renders m into its output representations.
func BuildViews(m Mapping) Views {
	versions := m.Versions()
	views := Views{
		Secrets: make([]Secret, 0, len(versions)),
		Bytes:   make([]SecretBytes, 0, len(versions)),
		Dict:    make(SecretDict, len(versions)),
	}
	for _, v := range versions {
		secret := m[v]
		chars := Codepoints(secret)
		views.Secrets = append(views.Secrets, Secret{Version: v, Secret: secret})
		views.Bytes = append(views.Bytes, SecretBytes{Version: v, Secret: chars})
		views.Dict[strconv.Itoa(v)] = chars
	}
	return views
}
