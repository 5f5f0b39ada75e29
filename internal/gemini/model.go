package gemini

// Gemini image model IDs
//
// | Model Name                | API Model ID               | Use Case                        |
// |---------------------------|----------------------------|---------------------------------|
// | Gemini 2.5 Flash Image    | gemini-2.5-flash-image     | Fast iterative image edits      |
// | Gemini 3 Pro Image        | gemini-3-pro-image-preview | Highest fidelity image edits    |
// | Gemini 2.5 Flash          | gemini-2.5-flash           | Text only; used to check keys   |
const (
	// ModelGemini25FlashImage is the default edit model.
	ModelGemini25FlashImage = "gemini-2.5-flash-image"

	// ModelGemini3ProImage trades latency for detail.
	ModelGemini3ProImage = "gemini-3-pro-image-preview"

	// ModelGemini25Flash is a cheap text model for key validation.
	ModelGemini25Flash = "gemini-2.5-flash"
)

// DefaultModelName is the edit model used when configuration names none.
const DefaultModelName = ModelGemini25FlashImage

// SystemInstruction frames every edit as product photography.
const SystemInstruction = `You are a professional product photographer and retoucher.
Apply the user's instruction to the supplied product photo and return the edited photo.
Keep the product itself (shape, label, text, proportions and colours) faithful to the input
unless the instruction explicitly asks to change it. Return exactly one image.`
