package models

// MaxImageBytes is the upload ceiling for both the person and the cloth
// image. Files at or above this size are rejected before any processing.
const MaxImageBytes = 10 * 1024 * 1024

// Multipart field names of the try-on wire contract.
const (
	FieldPersonImage = "person_image"
	FieldClothImage  = "cloth_image"
	FieldInstruction = "instructions"
	FieldModelType   = "model_type"
	FieldGender      = "gender"
	FieldGarmentType = "garment_type"
	FieldStyle       = "style"
)

// UploadedImage is a validated candidate file held in a visitor's intake
// slot until submit time.
type UploadedImage struct {
	FileName string `json:"file_name"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size"`
	Data     []byte `json:"-"`
}

// AttributeSelection carries the four optional dropdown values. They are
// passed through to the try-on service as-is, empty string when unset.
type AttributeSelection struct {
	ModelType   string `json:"model_type"`
	Gender      string `json:"gender"`
	GarmentType string `json:"garment_type"`
	Style       string `json:"style"`
}

// TryOnRequest is built fresh per submission and never persisted.
type TryOnRequest struct {
	PersonImage  *UploadedImage
	ClothImage   *UploadedImage
	Instructions string
	Attributes   AttributeSelection
}

// TryOnResult is one completed generation. Immutable once created.
type TryOnResult struct {
	ID          int64  `json:"id"`
	ResultImage string `json:"resultImage"`
	Text        string `json:"text,omitempty"`
	Timestamp   string `json:"timestamp"`
}

type TryOnSubmitIn struct {
	Instructions string `form:"instructions" json:"instructions" validate:"omitempty,max=2000"`
	ModelType    string `form:"model_type" json:"model_type"`
	Gender       string `form:"gender" json:"gender"`
	GarmentType  string `form:"garment_type" json:"garment_type"`
	Style        string `form:"style" json:"style"`
}

// TryOnServiceResponse is the success body of POST /api/try-on.
type TryOnServiceResponse struct {
	Image string `json:"image"`
	Text  string `json:"text,omitempty"`
}

// TryOnServiceError is the failure body of POST /api/try-on.
type TryOnServiceError struct {
	Message string `json:"message"`
}

type UploadedImageOut struct {
	Preview    string `json:"preview"`
	FileName   string `json:"file_name"`
	MimeType   string `json:"mime_type"`
	Size       int64  `json:"size"`
	Generation uint64 `json:"generation"`
}

type HistoryOut struct {
	Current *TryOnResult  `json:"current"`
	Gallery []TryOnResult `json:"gallery"`
}
