package qdrant

import pb "github.com/qdrant/go-client/qdrant"

// payloadToMap converts a Qdrant payload into plain Go values without coercion,
// so that type mismatches surface at assembly instead of being hidden here.
func payloadToMap(payload map[string]*pb.Value) map[string]any {
	if len(payload) == 0 {
		return nil
	}
	m := make(map[string]any, len(payload))
	for k, v := range payload {
		m[k] = valueToAny(v)
	}
	return m
}

func valueToAny(v *pb.Value) any {
	if v == nil {
		return nil
	}
	switch kind := v.GetKind().(type) {
	case *pb.Value_NullValue:
		return nil
	case *pb.Value_StringValue:
		return kind.StringValue
	case *pb.Value_IntegerValue:
		return kind.IntegerValue
	case *pb.Value_DoubleValue:
		return kind.DoubleValue
	case *pb.Value_BoolValue:
		return kind.BoolValue
	case *pb.Value_StructValue:
		return payloadToMap(kind.StructValue.GetFields())
	case *pb.Value_ListValue:
		values := kind.ListValue.GetValues()
		out := make([]any, len(values))
		for i, item := range values {
			out[i] = valueToAny(item)
		}
		return out
	default:
		return nil
	}
}
