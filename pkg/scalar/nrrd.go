package scalar

import "strings"

// nrrdAliases maps the type spellings allowed by the NRRD header format
// onto registered types.
var nrrdAliases = map[string]Type{
	"signed char":            Int8,
	"int8_t":                 Int8,
	"uchar":                  Uint8,
	"unsigned char":          Uint8,
	"uint8_t":                Uint8,
	"short":                  Int16,
	"short int":              Int16,
	"signed short":           Int16,
	"signed short int":       Int16,
	"int16_t":                Int16,
	"ushort":                 Uint16,
	"unsigned short":         Uint16,
	"unsigned short int":     Uint16,
	"uint16_t":               Uint16,
	"int":                    Int32,
	"signed int":             Int32,
	"int32_t":                Int32,
	"uint":                   Uint32,
	"unsigned int":           Uint32,
	"uint32_t":               Uint32,
	"longlong":               Int64,
	"long long":              Int64,
	"long long int":          Int64,
	"signed long long":       Int64,
	"signed long long int":   Int64,
	"int64_t":                Int64,
	"ulonglong":              Uint64,
	"unsigned long long":     Uint64,
	"unsigned long long int": Uint64,
	"uint64_t":               Uint64,
	"float":                  Float32,
	"double":                 Float64,
}

// ResolveNRRD resolves a type as written in an NRRD header. The C-style
// spellings from the NRRD format are tried first, then the canonical names.
// Runs of whitespace are collapsed, as header values may be padded.
func ResolveNRRD(name string) (Type, error) {
	key := strings.Join(strings.Fields(strings.ToLower(name)), " ")
	if t, ok := nrrdAliases[key]; ok {
		return t, nil
	}
	return Resolve(key)
}
