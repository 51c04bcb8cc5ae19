// Package access parses, merges, remaps and applies access transformer rules.
//
// A rule line widens the access of a class or member:
//
//	public net.minecraft.world.World                   # class
//	public-f net.minecraft.world.World field_1234      # field, drop final
//	protected net.minecraft.world.World func_5678(I)V  # method
//	public net.minecraft.world.World *                 # every field
//	public net.minecraft.world.World *()               # every method
//
// Rules from several sources are merged by widening: the most open access
// and the strongest final change win, nothing is overwritten.
package access
