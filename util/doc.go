// Package util holds small parsing helpers shared by config types.
package util
