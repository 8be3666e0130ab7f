package assets

// Exports the nano weights with the ultralytics CLI. Set YOLO_WEIGHTS_URL to
// download a prebuilt export instead.
//go:generate go run ../cmd/yolo-fetch --out weights/yolov8n.onnx --export yolov8n.pt
