package main

import "math/rand"

// adjectives and nouns back generateName, standing in for the original's
// petname-style two-word generator (original_source/game/main.py calls
// petname.generate(2, " ")). No petname-equivalent library appears
// anywhere in the pack, so a small built-in word list takes its place;
// see DESIGN.md.
var adjectives = []string{
	"quiet", "brave", "lucky", "clever", "swift", "silent", "golden",
	"stormy", "gentle", "wild", "curious", "loyal", "bold", "sunny", "sly",
}

var nouns = []string{
	"otter", "falcon", "badger", "heron", "lynx", "raven", "panther",
	"sparrow", "wolverine", "gecko", "marmot", "osprey", "viper", "ibex",
}

func generateName(rng *rand.Rand) string {
	return adjectives[rng.Intn(len(adjectives))] + "-" + nouns[rng.Intn(len(nouns))]
}
