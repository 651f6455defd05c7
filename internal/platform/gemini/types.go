// Package gemini provides implementations of the generation interfaces
// using Google's Gemini and Imagen models.
package gemini

// promptData represents the data passed to the story prompt template
type promptData struct {
	Title         string
	Transcript    string
	PhotoCaptions []string
}

// ResponseSchema represents the expected structure of the story model's
// JSON response.
type ResponseSchema struct {
	// Pages is the complete ordered page set for the book.
	Pages []PageSchema `json:"pages"`
}

// PageSchema represents a single page in the API response
type PageSchema struct {
	// PageNumber defines the page's position within the book, 1-based.
	PageNumber int `json:"pageNumber"`

	// PageType is one of cover, dedication, story, closing, back_cover,
	// gallery, gallery_grid.
	PageType string `json:"pageType"`

	// TextContent is the narrative text printed on the page.
	TextContent string `json:"textContent"`

	// IllustrationPrompt is the prompt later used to generate this page's
	// illustration.
	IllustrationPrompt string `json:"illustrationPrompt"`

	// SceneDescription is a short description of the scene, kept for
	// appearance continuity across regenerations.
	SceneDescription string `json:"sceneDescription,omitempty"`
}
