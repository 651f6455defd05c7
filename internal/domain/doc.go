// Package domain contains the core entities of the storybook system:
// projects, photos, pages and illustrations. Types here carry their own
// validation and know nothing about persistence or transport.
package domain
