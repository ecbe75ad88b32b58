// Command wordsock converts a network endpoint to its spoken word form,
// or a word form back to the endpoint it encodes.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/wordsock/wordsock"
)

var decodeFlag = flag.Bool("decode", false, "treat the argument as a word string and decode it")

func main() {
	flag.Parse()

	arg := flag.Arg(0)
	if arg == "" {
		log.Fatal("must specify an endpoint such as \"192.168.1.1:443\", or a word string with -decode")
	}

	if *decodeFlag {
		out, err := wordsock.Decode(arg)
		if err != nil {
			log.Fatal(err)
		}

		fmt.Println(out)
		return
	}

	out, err := wordsock.Encode(arg)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(out)
}
