// Package gemini provides Google Gemini implementations of the generation
// interfaces: StoryGenerator renders a project's transcript and photo
// captions into a page set with a text model, and Illustrator paints
// individual pages with an Imagen model. API failures are translated into
// the generation package's error taxonomy so callers can decide what is
// worth retrying.
package gemini
