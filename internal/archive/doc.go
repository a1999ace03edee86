// Package archive extracts and re-creates the zip-format deployable unit.
//
// Extract unpacks every member into a directory, refusing entries whose
// paths would escape it. Pack walks a directory and writes a zip whose entry
// names are relative to that directory, with META-INF/MANIFEST.MF first so
// the result remains a well-formed jar.
package archive
