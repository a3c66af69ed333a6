package app

import (
	"github.com/specialistvlad/protectgrid/internal/bank"
	"github.com/specialistvlad/protectgrid/internal/bank/filebank"
	"github.com/specialistvlad/protectgrid/internal/bank/leveldbbank"
	"github.com/specialistvlad/protectgrid/internal/bank/memorybank"
	"github.com/specialistvlad/protectgrid/internal/bank/s3bank"
	"github.com/specialistvlad/protectgrid/internal/protection"
	"github.com/specialistvlad/protectgrid/internal/protections"
)

// coreBanks is the definitive list of bank backends compiled into the
// protectgrid binary.
var coreBanks = []bank.Backend{
	memorybank.Backend{},
	filebank.Backend{},
	leveldbbank.Backend{},
	s3bank.Backend{},
}

// corePlugins registers the protection plugins compiled into the binary.
var corePlugins = []func(*protection.PluginTable){
	protections.Register,
}
