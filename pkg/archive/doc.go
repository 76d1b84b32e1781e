// Package archive builds the zip file a harvest run produces and names its
// entries.
//
// Entries live under a single images_webp/ folder and are deflated at level
// 6. Entry names come from FileName and are made unique by Add:
//
//	photo.webp, photo_2.webp, photo_3.webp
package archive
