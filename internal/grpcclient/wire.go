package grpcclient

// Wire contract of the scorer service. Messages are protobuf well-known
// wrappers: the request is a BytesValue holding an encoded
// imageprocessor.Tensor and the response a DoubleValue with the score.
const (
	ServiceName = "aicheck.scoring.v1.Scorer"
	ScoreMethod = "/" + ServiceName + "/Score"
)
