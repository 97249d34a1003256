// Package viz draws layouts in the terminal.
//
// [Canvas] is a braille grid, two by four dots per cell, that keeps one
// colour per cell. [DrawLayout] projects a frame onto it. [Model] is a Bubble
// Tea program that plays a scene on its virtual loop, one display frame per
// tick, with alpha and energy charts beside the canvas; [Picker] lets the
// user choose a preset first.
//
// # Key Bindings
//
//	Space - Pause/Resume playback
//	+/-   - Double/halve playback speed
//	T     - Cycle color themes
//	G     - Toggle GIF recording
//	?     - Show help overlay
package viz
