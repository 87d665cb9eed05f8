// Package nbt implements the Named Binary Tag format used by Minecraft.
//
// Documents are decoded into a tree of Tag values and encoded back
// byte for byte. All numbers are big-endian and strings use the modified
// UTF-8 encoding of java's DataOutput.
package nbt
