package detector

//go:generate go run ../cmd/yolo-fetch --out testdata/person.jpg --url https://ultralytics.com/images/zidane.jpg
