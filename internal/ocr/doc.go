// Package ocr extracts text from clipboard images with Tesseract.
//
// Recognition goes through the gosseract cgo bindings, so libtesseract and
// the language data for every configured language must be installed. Images
// are preprocessed before recognition:
//
//   - images shorter than MinHeight are upscaled (Lanczos, at most 4x);
//   - the image is converted to grayscale;
//   - if Threshold is non-zero the image is binarized at that level.
//
// # Errors
//
// Engine failures wrap ErrExtraction. A successful run that yields only
// whitespace returns ErrNoText.
package ocr
